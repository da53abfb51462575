package testsupport

import (
	"path/filepath"
	"testing"

	"mediatrack/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.TMDB.APIKey = "test"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Cache.DBPath = filepath.Join(base, "data", "cache.db")
	cfgVal.Cache.Version = "test-version"

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

// WithTMDBKey sets the TMDB API key on the test config.
func WithTMDBKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMDB.APIKey = key
	}
}

// WithTMDBBaseURL points catalog requests at a test server.
func WithTMDBBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMDB.BaseURL = url
	}
}

// WithProgressWindowHours overrides the progress-update coalescing window.
func WithProgressWindowHours(hours int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.ProgressUpdateWindowHours = hours
	}
}

// WithVersion overrides the process version stamped on versioned entries.
func WithVersion(version string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Version = version
	}
}
