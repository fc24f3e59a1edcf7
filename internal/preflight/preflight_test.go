package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sup2pgm/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(nil); results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
}

func TestRunAll_DefaultsCheckCurrentDirectory(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := config.Default()
	results := RunAll(&cfg)
	if len(results) != 1 {
		t.Fatalf("expected only the output check, got %+v", results)
	}
	if !results[0].Passed || !strings.HasPrefix(results[0].Detail, ".") {
		t.Fatalf("unexpected result %+v", results[0])
	}
	if err := Err(results); err != nil {
		t.Fatalf("Err: %v", err)
	}
}

func TestRunAll_CatalogAndLogDirectories(t *testing.T) {
	out := t.TempDir()
	cfg := config.Default()
	cfg.Output.Dir = out
	cfg.Output.Catalog = true
	cfg.Logging.File = filepath.Join(out, "missing", "run.jsonl")

	results := RunAll(&cfg)
	if len(results) != 3 {
		t.Fatalf("expected three checks, got %+v", results)
	}
	if !results[0].Passed || !results[1].Passed {
		t.Fatalf("output and catalog directories should pass: %+v", results)
	}
	if results[2].Passed {
		t.Fatal("missing log directory should fail")
	}
	err := Err(results)
	if err == nil || !strings.Contains(err.Error(), "Log directory") {
		t.Fatalf("Err = %v", err)
	}
}
