package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// AniList contains configuration for the primary catalog.
type AniList struct {
	BaseURL           string `toml:"base_url"`
	Token             string `toml:"token"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	PerPage           int    `toml:"per_page"`
	MaxPages          int    `toml:"max_pages"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	MaxRetries        int    `toml:"max_retries"`
	RetryBaseMillis   int    `toml:"retry_base_millis"`
}

// Matching contains per-run matching behaviour.
type Matching struct {
	Workers            int  `toml:"workers"`
	BatchSize          int  `toml:"batch_size"`
	IgnoreOneShots     bool `toml:"ignore_one_shots"`
	IgnoreAdult        bool `toml:"ignore_adult"`
	AutoMatchThreshold int  `toml:"auto_match_threshold"`
	CaseSensitive      bool `toml:"case_sensitive"`
}

// Cache contains configuration for the search and record caches.
type Cache struct {
	Backend             string `toml:"backend"` // sqlite, bolt, redis, memory
	BoltPath            string `toml:"bolt_path"`
	RedisURL            string `toml:"redis_url"`
	RedisPrefix         string `toml:"redis_prefix"`
	SearchTTLMinutes    int    `toml:"search_ttl_minutes"`
	RecordTTLHours      int    `toml:"record_ttl_hours"`
	FlushDebounceMillis int    `toml:"flush_debounce_millis"`
}

// Fallback contains configuration for the secondary catalogs.
type Fallback struct {
	MangaDexEnabled   bool    `toml:"mangadex_enabled"`
	MangaDexBaseURL   string  `toml:"mangadex_base_url"`
	ComickEnabled     bool    `toml:"comick_enabled"`
	ComickBaseURL     string  `toml:"comick_base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	MaxHits           int     `toml:"max_hits"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Server contains configuration for the HTTP API.
type Server struct {
	Bind string `toml:"bind"`
	// Token, when set, is required as a bearer token on every API request.
	Token string `toml:"token"`
}

// Config encapsulates all configuration values for mangamatch.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - AniList: primary catalog endpoint, token, and request budget
//   - Matching: worker count, batch size, filters, auto-match threshold
//   - Cache: durable backend and TTLs for the two cache namespaces
//   - Fallback: MangaDex and Comick secondary lookups
//   - Logging: log format and level
//   - Server: HTTP API bind address
type Config struct {
	Paths    Paths    `toml:"paths"`
	AniList  AniList  `toml:"anilist"`
	Matching Matching `toml:"matching"`
	Cache    Cache    `toml:"cache"`
	Fallback Fallback `toml:"fallback"`
	Logging  Logging  `toml:"logging"`
	Server   Server   `toml:"server"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. Environment
// overrides are applied after the file, then the result is normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mangamatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath is the SQLite file holding the cache namespaces and saved results.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "mangamatch.db")
}

// LockPath is the lock file guarding batch runs against the same data directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "mangamatch.lock")
}

// SearchTTL returns the lifetime of raw search responses.
func (c *Config) SearchTTL() time.Duration {
	return time.Duration(c.Cache.SearchTTLMinutes) * time.Minute
}

// RecordTTL returns the lifetime of resolved records indexed by title.
func (c *Config) RecordTTL() time.Duration {
	return time.Duration(c.Cache.RecordTTLHours) * time.Hour
}

// FlushDebounce returns how long cache writes coalesce before hitting the store.
func (c *Config) FlushDebounce() time.Duration {
	return time.Duration(c.Cache.FlushDebounceMillis) * time.Millisecond
}

// RequestTimeout returns the HTTP timeout for catalog calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.AniList.TimeoutSeconds) * time.Second
}

// RetryBaseDelay returns the gateway's base backoff delay.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.AniList.RetryBaseMillis) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
