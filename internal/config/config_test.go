package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"sup2pgm/internal/config"
)

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	want := filepath.Join(tempHome, ".config", "sup2pgm", "config.toml")
	if resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}
	if cfg.Decode.MergeThresholdMS != 200 {
		t.Fatalf("unexpected merge threshold %d", cfg.Decode.MergeThresholdMS)
	}
	if !cfg.Decode.AcquisitionPointClears {
		t.Fatal("expected acquisition points to clear by default")
	}
	if cfg.Output.BaseName != "movie_subtitle" || cfg.Output.IndexExtension != ".srtx" {
		t.Fatalf("unexpected output defaults: %+v", cfg.Output)
	}
	if !cfg.Output.Lock || cfg.Output.Catalog {
		t.Fatalf("unexpected lock/catalog defaults: %+v", cfg.Output)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadProjectFileFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, "sup2pgm.toml"), []byte("[output]\nbase_name = \"episode\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || filepath.Base(resolved) != "sup2pgm.toml" {
		t.Fatalf("expected project config, got %q exists=%v", resolved, exists)
	}
	if cfg.Output.BaseName != "episode" {
		t.Fatalf("base name = %q", cfg.Output.BaseName)
	}
}

func TestLoadCustomPathNormalizes(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	path := filepath.Join(t.TempDir(), "custom.toml")
	body := `
[decode]
merge_threshold_ms = 0
acquisition_point_clears = false

[output]
dir = "~/subs"
index_extension = "idx"
catalog = true

[logging]
format = " JSON "
level = "DEBUG"
file = "~/logs/run.jsonl"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if resolved != path || !exists {
		t.Fatalf("resolved=%q exists=%v", resolved, exists)
	}
	if cfg.Decode.MergeThresholdMS != 0 || cfg.Decode.AcquisitionPointClears {
		t.Fatalf("decode not applied: %+v", cfg.Decode)
	}
	if cfg.Output.Dir != filepath.Join(tempHome, "subs") {
		t.Fatalf("dir not expanded: %q", cfg.Output.Dir)
	}
	if cfg.Output.IndexExtension != ".idx" {
		t.Fatalf("extension = %q", cfg.Output.IndexExtension)
	}
	if got, want := cfg.ResolvedCatalogPath(), filepath.Join(tempHome, "subs", "movie_subtitle.db"); got != want {
		t.Fatalf("catalog path = %q want %q", got, want)
	}
	if got, want := cfg.IndexPath(), filepath.Join(tempHome, "subs", "movie_subtitle.idx"); got != want {
		t.Fatalf("index path = %q want %q", got, want)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
	if cfg.Logging.File != filepath.Join(tempHome, "logs", "run.jsonl") {
		t.Fatalf("log file not expanded: %q", cfg.Logging.File)
	}
}

func TestLoadMissingCustomPathUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists || resolved != path {
		t.Fatalf("resolved=%q exists=%v", resolved, exists)
	}
	if cfg.Output.BaseName != "movie_subtitle" {
		t.Fatalf("expected defaults, got %+v", cfg.Output)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[decode]\nmerge_treshold_ms = 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for misspelled key")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "defaults"},
		{name: "negative threshold", mutate: func(c *config.Config) { c.Decode.MergeThresholdMS = -1 }, wantErr: "merge_threshold_ms"},
		{name: "empty base", mutate: func(c *config.Config) { c.Output.BaseName = "" }, wantErr: "base_name must be set"},
		{name: "base with separator", mutate: func(c *config.Config) { c.Output.BaseName = "a/b" }, wantErr: "path separator"},
		{name: "negative concurrency", mutate: func(c *config.Config) { c.Batch.Concurrency = -2 }, wantErr: "batch.concurrency"},
		{name: "bad format", mutate: func(c *config.Config) { c.Logging.Format = "xml" }, wantErr: "logging.format"},
		{name: "bad level", mutate: func(c *config.Config) { c.Logging.Level = "trace" }, wantErr: "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path, false); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if decoded.Decode.MergeThresholdMS != config.Default().Decode.MergeThresholdMS {
		t.Fatalf("sample threshold %d differs from default", decoded.Decode.MergeThresholdMS)
	}
	if decoded.Output.BaseName != config.Default().Output.BaseName {
		t.Fatalf("sample base name %q differs from default", decoded.Output.BaseName)
	}

	if err := config.CreateSample(path, false); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
	if err := config.CreateSample(path, true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := config.ExpandPath("~/a/../b")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "b") {
		t.Fatalf("ExpandPath = %q", got)
	}
	if got, _ := config.ExpandPath(""); got != "" {
		t.Fatalf("empty path should stay empty, got %q", got)
	}
}
