package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAniList()
	c.normalizeMatching()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeFallback()
	c.normalizeLogging()
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	c.Server.Token = strings.TrimSpace(c.Server.Token)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAniList() {
	c.AniList.BaseURL = strings.TrimRight(strings.TrimSpace(c.AniList.BaseURL), "/")
	if c.AniList.BaseURL == "" {
		c.AniList.BaseURL = defaultAniListBaseURL
	}
	c.AniList.Token = strings.TrimSpace(c.AniList.Token)
	if c.AniList.PerPage <= 0 {
		c.AniList.PerPage = defaultPerPage
	}
	if c.AniList.PerPage > maxPerPage {
		c.AniList.PerPage = maxPerPage
	}
	if c.AniList.MaxPages <= 0 {
		c.AniList.MaxPages = defaultMaxPages
	}
	if c.AniList.TimeoutSeconds <= 0 {
		c.AniList.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.AniList.MaxRetries < 0 {
		c.AniList.MaxRetries = 0
	}
	if c.AniList.RetryBaseMillis <= 0 {
		c.AniList.RetryBaseMillis = defaultRetryBaseMillis
	}
}

func (c *Config) normalizeMatching() {
	if c.Matching.Workers <= 0 {
		c.Matching.Workers = defaultWorkers
	}
	if c.Matching.BatchSize <= 0 {
		c.Matching.BatchSize = defaultBatchSize
	}
	if c.Matching.BatchSize > maxBatchSize {
		c.Matching.BatchSize = maxBatchSize
	}
}

func (c *Config) normalizeCache() error {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	if c.Cache.Backend == "bbolt" {
		c.Cache.Backend = "bolt"
	}
	if strings.TrimSpace(c.Cache.BoltPath) == "" {
		c.Cache.BoltPath = defaultBoltPath
	}
	var err error
	if c.Cache.BoltPath, err = expandPath(c.Cache.BoltPath); err != nil {
		return fmt.Errorf("cache.bolt_path: %w", err)
	}
	c.Cache.RedisURL = strings.TrimSpace(c.Cache.RedisURL)
	if c.Cache.RedisPrefix == "" {
		c.Cache.RedisPrefix = defaultRedisPrefix
	}
	if c.Cache.SearchTTLMinutes <= 0 {
		c.Cache.SearchTTLMinutes = defaultSearchTTLMinutes
	}
	if c.Cache.RecordTTLHours <= 0 {
		c.Cache.RecordTTLHours = defaultRecordTTLHours
	}
	if c.Cache.FlushDebounceMillis < 0 {
		c.Cache.FlushDebounceMillis = 0
	}
	return nil
}

func (c *Config) normalizeFallback() {
	c.Fallback.MangaDexBaseURL = strings.TrimRight(strings.TrimSpace(c.Fallback.MangaDexBaseURL), "/")
	if c.Fallback.MangaDexBaseURL == "" {
		c.Fallback.MangaDexBaseURL = defaultMangaDexBaseURL
	}
	c.Fallback.ComickBaseURL = strings.TrimRight(strings.TrimSpace(c.Fallback.ComickBaseURL), "/")
	if c.Fallback.ComickBaseURL == "" {
		c.Fallback.ComickBaseURL = defaultComickBaseURL
	}
	if c.Fallback.RequestsPerSecond <= 0 {
		c.Fallback.RequestsPerSecond = defaultFallbackRPS
	}
	if c.Fallback.MaxHits <= 0 {
		c.Fallback.MaxHits = defaultFallbackMaxHits
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
