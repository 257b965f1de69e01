package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// envOverrides maps environment variables onto the file-based config. Empty
// variables leave the file value untouched.
type envOverrides struct {
	AniListToken   string `env:"ANILIST_TOKEN"`
	AniListBaseURL string `env:"MANGAMATCH_ANILIST_URL"`
	DataDir        string `env:"MANGAMATCH_DATA_DIR"`
	CacheBackend   string `env:"MANGAMATCH_CACHE_BACKEND"`
	RedisURL       string `env:"MANGAMATCH_REDIS_URL"`
	LogLevel       string `env:"MANGAMATCH_LOG_LEVEL"`
	LogFormat      string `env:"MANGAMATCH_LOG_FORMAT"`
	ServerBind     string `env:"MANGAMATCH_BIND"`
	ServerToken    string `env:"MANGAMATCH_API_TOKEN"`
	Workers        int    `env:"MANGAMATCH_WORKERS"`
}

func (c *Config) applyEnv() error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parse environment overrides: %w", err)
	}
	setIfPresent(&c.AniList.Token, overrides.AniListToken)
	setIfPresent(&c.AniList.BaseURL, overrides.AniListBaseURL)
	setIfPresent(&c.Paths.DataDir, overrides.DataDir)
	setIfPresent(&c.Cache.Backend, overrides.CacheBackend)
	setIfPresent(&c.Cache.RedisURL, overrides.RedisURL)
	setIfPresent(&c.Logging.Level, overrides.LogLevel)
	setIfPresent(&c.Logging.Format, overrides.LogFormat)
	setIfPresent(&c.Server.Bind, overrides.ServerBind)
	setIfPresent(&c.Server.Token, overrides.ServerToken)
	if overrides.Workers > 0 {
		c.Matching.Workers = overrides.Workers
	}
	return nil
}

func setIfPresent(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}
