package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mangamatch/internal/anilist"
	"mangamatch/internal/cache"
	"mangamatch/internal/catalog"
	"mangamatch/internal/config"
	"mangamatch/internal/fallback"
	"mangamatch/internal/fallback/comick"
	"mangamatch/internal/fallback/mangadex"
	"mangamatch/internal/gateway"
	"mangamatch/internal/logging"
	"mangamatch/internal/matcher"
	"mangamatch/internal/store"
)

// Runtime bundles the collaborators one mangamatch process works with: the
// results database, the cache backend, the catalog gateway, and the matcher
// built on top of them.
type Runtime struct {
	Config  *config.Config
	Logger  *slog.Logger
	Store   *store.Store
	Matcher *matcher.Matcher

	gateway *gateway.Gateway
	caches  []interface{ Close(context.Context) error }
	closers []func() error
}

// Open builds a Runtime from cfg. Close releases everything Open acquired.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.DatabasePath())
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Config: cfg, Logger: logger, Store: st}
	rt.closers = append(rt.closers, st.Close)

	kv, closeKV, err := OpenCacheStore(ctx, cfg, st, logger)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	if closeKV != nil {
		rt.closers = append(rt.closers, closeKV)
	}

	transport, err := anilist.NewHTTPTransport(cfg.AniList.BaseURL, anilist.WithTimeout(cfg.RequestTimeout()))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("catalog transport: %w", err)
	}
	rt.gateway = gateway.New(transport, gateway.Options{
		RequestsPerMinute: cfg.AniList.RequestsPerMinute,
		MaxRetries:        cfg.AniList.MaxRetries,
		BaseDelay:         cfg.RetryBaseDelay(),
		Logger:            logger,
	})
	client := anilist.NewClient(rt.gateway, anilist.ClientOptions{
		PerPage:   cfg.AniList.PerPage,
		BatchSize: cfg.Matching.BatchSize,
		Logger:    logger,
	})

	searches := cache.New[catalog.Page](ctx, cache.Options{
		Namespace: "search_cache",
		TTL:       cfg.SearchTTL(),
		Store:     kv,
		Debounce:  cfg.FlushDebounce(),
		Logger:    logger,
	})
	records := cache.New[[]catalog.Record](ctx, cache.Options{
		Namespace: "record_cache",
		TTL:       cfg.RecordTTL(),
		Store:     kv,
		Debounce:  cfg.FlushDebounce(),
		Logger:    logger,
	})
	rt.caches = append(rt.caches, searches, records)

	m, err := matcher.New(matcher.Dependencies{
		Catalog:     client,
		Resolver:    NewResolver(cfg, client, logger),
		SearchCache: searches,
		RecordCache: records,
		Logger:      logger,
	}, MatcherOptions(cfg))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	rt.Matcher = m

	logger.Debug("runtime ready",
		logging.String("database", st.Path()),
		logging.String("cache_backend", cfg.Cache.Backend),
		logging.Int("requests_per_minute", cfg.AniList.RequestsPerMinute))
	return rt, nil
}

// NewResolver wires the enabled secondary catalogs in MangaDex, Comick order.
func NewResolver(cfg *config.Config, fetcher fallback.Fetcher, logger *slog.Logger) *fallback.Resolver {
	var sources []fallback.Source
	if cfg.Fallback.MangaDexEnabled {
		sources = append(sources, mangadex.New(cfg.Fallback.MangaDexBaseURL,
			mangadex.WithRate(cfg.Fallback.RequestsPerSecond),
			mangadex.WithMaxHits(cfg.Fallback.MaxHits),
			mangadex.WithLogger(logger)))
	}
	if cfg.Fallback.ComickEnabled {
		sources = append(sources, comick.New(cfg.Fallback.ComickBaseURL,
			comick.WithRate(cfg.Fallback.RequestsPerSecond),
			comick.WithMaxHits(cfg.Fallback.MaxHits),
			comick.WithLogger(logger)))
	}
	return fallback.NewResolver(fetcher, logger, sources...)
}

// MatcherOptions maps the [matching] and [anilist] sections onto matcher options.
func MatcherOptions(cfg *config.Config) matcher.Options {
	return matcher.Options{
		Workers:            cfg.Matching.Workers,
		BatchSize:          cfg.Matching.BatchSize,
		PerPage:            cfg.AniList.PerPage,
		MaxPages:           cfg.AniList.MaxPages,
		IgnoreOneShots:     cfg.Matching.IgnoreOneShots,
		IgnoreAdult:        cfg.Matching.IgnoreAdult,
		AutoMatchThreshold: cfg.Matching.AutoMatchThreshold,
		CaseSensitive:      cfg.Matching.CaseSensitive,
	}
}

// Token returns the configured catalog token.
func (r *Runtime) Token() string {
	return r.Config.AniList.Token
}

// Close flushes the caches, stops the gateway, and closes the stores in
// reverse order of opening.
func (r *Runtime) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, c := range r.caches {
		errs = append(errs, c.Close(context.WithoutCancel(ctx)))
	}
	r.caches = nil
	if r.gateway != nil {
		r.gateway.Close()
		r.gateway = nil
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	r.closers = nil
	return errors.Join(errs...)
}
