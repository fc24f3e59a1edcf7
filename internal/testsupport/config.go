package testsupport

import (
	"path/filepath"
	"testing"

	"sup2pgm/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose output directory is a fresh temp
// directory. Output locking stays on as in production.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Output.Dir = filepath.Join(base, "out")
	cfgVal.Decode.MaxCanvasBytes = 1 << 24

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithBaseName overrides the frame file prefix.
func WithBaseName(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.BaseName = name
	}
}

// WithCatalog enables the frame catalog inside the temp directory.
func WithCatalog() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.Catalog = true
		b.cfg.Output.CatalogPath = filepath.Join(b.baseDir, "catalog.db")
	}
}

// WithMergeThreshold sets the merge threshold in milliseconds.
func WithMergeThreshold(ms int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Decode.MergeThresholdMS = ms
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Output.Dir)
}
