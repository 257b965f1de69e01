package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"mangamatch/internal/config"
	"mangamatch/internal/kvstore"
	"mangamatch/internal/logging"
	"mangamatch/internal/store"
)

var (
	ErrCacheBackendUnknown     = errors.New("cache backend is not supported")
	ErrRedisURLNotConfigured   = errors.New("redis cache url is not configured")
	ErrBoltPathNotConfigured   = errors.New("bolt cache path is not configured")
	ErrResultsStoreUnavailable = errors.New("results store is not open")
)

// OpenCacheStore selects the durable key-value backend for the caches. The
// sqlite backend shares st; other backends return a closer the caller owns.
func OpenCacheStore(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) (kvstore.Store, func() error, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	backend := strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	switch backend {
	case "", "sqlite":
		if st == nil {
			return nil, nil, ErrResultsStoreUnavailable
		}
		return st.KV(), nil, nil
	case "memory":
		return kvstore.NewMemory(), nil, nil
	case "bolt":
		path := strings.TrimSpace(cfg.Cache.BoltPath)
		if path == "" {
			return nil, nil, ErrBoltPathNotConfigured
		}
		b, err := kvstore.OpenBolt(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open bolt cache: %w", err)
		}
		return b, b.Close, nil
	case "redis":
		if strings.TrimSpace(cfg.Cache.RedisURL) == "" {
			return nil, nil, ErrRedisURLNotConfigured
		}
		r, err := kvstore.DialRedis(ctx, cfg.Cache.RedisURL, cfg.Cache.RedisPrefix, logger)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrCacheBackendUnknown, cfg.Cache.Backend)
	}
}
