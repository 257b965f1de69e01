package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"mangamatch/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ANILIST_TOKEN", "MANGAMATCH_ANILIST_URL", "MANGAMATCH_DATA_DIR", "MANGAMATCH_CACHE_BACKEND",
		"MANGAMATCH_REDIS_URL", "MANGAMATCH_LOG_LEVEL", "MANGAMATCH_LOG_FORMAT", "MANGAMATCH_BIND", "MANGAMATCH_WORKERS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "mangamatch", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".local", "share", "mangamatch"); cfg.Paths.DataDir != want {
		t.Fatalf("data dir = %q, want %q", cfg.Paths.DataDir, want)
	}
	if cfg.Matching.Workers != 1 {
		t.Fatalf("expected a single worker by default, got %d", cfg.Matching.Workers)
	}
	if cfg.Matching.BatchSize != 25 {
		t.Fatalf("batch size = %d, want 25", cfg.Matching.BatchSize)
	}
	if cfg.SearchTTL() != 30*time.Minute || cfg.RecordTTL() != 24*time.Hour {
		t.Fatalf("unexpected ttls: %v %v", cfg.SearchTTL(), cfg.RecordTTL())
	}
	if cfg.FlushDebounce() != 2*time.Second {
		t.Fatalf("flush debounce = %v", cfg.FlushDebounce())
	}
	if cfg.Cache.Backend != "sqlite" {
		t.Fatalf("backend = %q", cfg.Cache.Backend)
	}
	if cfg.DatabasePath() != filepath.Join(cfg.Paths.DataDir, "mangamatch.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
}

func TestLoadReadsFileAndNormalizes(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	payload := map[string]any{
		"paths":    map[string]any{"data_dir": filepath.Join(dir, "data")},
		"anilist":  map[string]any{"base_url": "http://localhost:9999/", "per_page": 500, "requests_per_minute": 60},
		"matching": map[string]any{"workers": 0, "batch_size": 400, "ignore_one_shots": true},
		"cache":    map[string]any{"backend": " BBolt "},
		"logging":  map[string]any{"format": "JSON", "level": "Debug"},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected existing config at %q, got %q (%v)", path, resolved, exists)
	}
	if cfg.AniList.BaseURL != "http://localhost:9999" {
		t.Fatalf("base url not trimmed: %q", cfg.AniList.BaseURL)
	}
	if cfg.AniList.PerPage != 50 {
		t.Fatalf("per page should clamp to 50, got %d", cfg.AniList.PerPage)
	}
	if cfg.Matching.Workers != 1 || cfg.Matching.BatchSize != 50 {
		t.Fatalf("unexpected matching: %+v", cfg.Matching)
	}
	if !cfg.Matching.IgnoreOneShots {
		t.Fatal("expected ignore_one_shots from file")
	}
	if cfg.Cache.Backend != "bolt" {
		t.Fatalf("backend alias not normalized: %q", cfg.Cache.Backend)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ANILIST_TOKEN", "env-token")
	t.Setenv("MANGAMATCH_CACHE_BACKEND", "redis")
	t.Setenv("MANGAMATCH_REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("MANGAMATCH_WORKERS", "3")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.AniList.Token != "env-token" {
		t.Fatalf("token = %q", cfg.AniList.Token)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.RedisURL != "redis://localhost:6379/2" {
		t.Fatalf("unexpected cache: %+v", cfg.Cache)
	}
	if cfg.Matching.Workers != 3 {
		t.Fatalf("workers = %d", cfg.Matching.Workers)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"redis without url", func(c *config.Config) { c.Cache.Backend = "redis" }, "redis_url"},
		{"unknown backend", func(c *config.Config) { c.Cache.Backend = "etcd" }, "cache.backend"},
		{"threshold range", func(c *config.Config) { c.Matching.AutoMatchThreshold = 120 }, "auto_match_threshold"},
		{"zero budget", func(c *config.Config) { c.AniList.RequestsPerMinute = 0 }, "requests_per_minute"},
		{"relative url", func(c *config.Config) { c.AniList.BaseURL = "graphql" }, "anilist.base_url"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	t.Setenv("HOME", t.TempDir())
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.AniList.RequestsPerMinute != config.Default().AniList.RequestsPerMinute {
		t.Fatalf("sample budget drifted from defaults: %d", cfg.AniList.RequestsPerMinute)
	}
	if !cfg.Fallback.MangaDexEnabled || !cfg.Fallback.ComickEnabled {
		t.Fatal("expected fallback sources enabled in sample")
	}
}
