package testsupport

import (
	"path/filepath"
	"testing"

	"mangamatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Fallback catalogs are disabled and the cache uses the memory backend so
// tests never reach the network or share state.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.AniList.BaseURL = "http://127.0.0.1:0/graphql"
	cfgVal.AniList.RetryBaseMillis = 1
	cfgVal.AniList.RequestsPerMinute = 60000
	cfgVal.Cache.Backend = "memory"
	cfgVal.Cache.BoltPath = filepath.Join(base, "data", "cache.bolt")
	cfgVal.Cache.FlushDebounceMillis = 0
	cfgVal.Fallback.MangaDexEnabled = false
	cfgVal.Fallback.ComickEnabled = false
	cfgVal.Server.Bind = "127.0.0.1:0"

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

// WithCatalogURL points the primary catalog at a test server.
func WithCatalogURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.AniList.BaseURL = url
	}
}

// WithCacheBackend overrides the cache backend on the test config.
func WithCacheBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Backend = backend
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
