package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAniList(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAniList() error {
	if err := validateURL("anilist.base_url", c.AniList.BaseURL); err != nil {
		return err
	}
	if c.AniList.RequestsPerMinute <= 0 {
		return errors.New("anilist.requests_per_minute must be positive")
	}
	if c.AniList.MaxRetries > 10 {
		return errors.New("anilist.max_retries must be 10 or less")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.AutoMatchThreshold < 0 || c.Matching.AutoMatchThreshold > 100 {
		return errors.New("matching.auto_match_threshold must be between 0 and 100")
	}
	if c.Matching.Workers > 16 {
		return errors.New("matching.workers must be 16 or less; the catalog budget is shared across workers")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "sqlite", "bolt", "memory":
	case "redis":
		if c.Cache.RedisURL == "" {
			return errors.New("cache.redis_url is required when cache.backend is redis (or set MANGAMATCH_REDIS_URL)")
		}
	default:
		return fmt.Errorf("cache.backend: unsupported value %q (want sqlite, bolt, redis, or memory)", c.Cache.Backend)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func validateURL(field, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", field, raw)
	}
	return nil
}
