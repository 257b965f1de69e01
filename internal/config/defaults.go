package config

const (
	defaultConfigPath          = "~/.config/mangamatch/config.toml"
	defaultDataDir             = "~/.local/share/mangamatch"
	defaultLogDir              = "~/.local/share/mangamatch/logs"
	defaultAniListBaseURL      = "https://graphql.anilist.co"
	defaultRequestsPerMinute   = 28
	defaultPerPage             = 50
	defaultMaxPages            = 1
	defaultTimeoutSeconds      = 15
	defaultMaxRetries          = 3
	defaultRetryBaseMillis     = 1000
	defaultWorkers             = 1
	defaultBatchSize           = 25
	defaultCacheBackend        = "sqlite"
	defaultBoltPath            = "~/.local/share/mangamatch/cache.bolt"
	defaultRedisPrefix         = "mangamatch:"
	defaultSearchTTLMinutes    = 30
	defaultRecordTTLHours      = 24
	defaultFlushDebounceMillis = 2000
	defaultMangaDexBaseURL     = "https://api.mangadex.org"
	defaultComickBaseURL       = "https://api.comick.fun"
	defaultFallbackRPS         = 3
	defaultFallbackMaxHits     = 3
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultServerBind          = "127.0.0.1:7592"

	// maxBatchSize is the catalog's cap on ids per direct lookup.
	maxBatchSize = 50
	maxPerPage   = 50
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		AniList: AniList{
			BaseURL:           defaultAniListBaseURL,
			RequestsPerMinute: defaultRequestsPerMinute,
			PerPage:           defaultPerPage,
			MaxPages:          defaultMaxPages,
			TimeoutSeconds:    defaultTimeoutSeconds,
			MaxRetries:        defaultMaxRetries,
			RetryBaseMillis:   defaultRetryBaseMillis,
		},
		Matching: Matching{
			Workers:        defaultWorkers,
			BatchSize:      defaultBatchSize,
			IgnoreOneShots: false,
			IgnoreAdult:    false,
		},
		Cache: Cache{
			Backend:             defaultCacheBackend,
			BoltPath:            defaultBoltPath,
			RedisPrefix:         defaultRedisPrefix,
			SearchTTLMinutes:    defaultSearchTTLMinutes,
			RecordTTLHours:      defaultRecordTTLHours,
			FlushDebounceMillis: defaultFlushDebounceMillis,
		},
		Fallback: Fallback{
			MangaDexEnabled:   true,
			MangaDexBaseURL:   defaultMangaDexBaseURL,
			ComickEnabled:     true,
			ComickBaseURL:     defaultComickBaseURL,
			RequestsPerSecond: defaultFallbackRPS,
			MaxHits:           defaultFallbackMaxHits,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
	}
}
