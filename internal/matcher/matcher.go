package matcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"mangamatch/internal/cache"
	"mangamatch/internal/catalog"
	"mangamatch/internal/fallback"
	"mangamatch/internal/logging"
	"mangamatch/internal/scoring"
	"mangamatch/internal/services"
	"mangamatch/internal/textutil"
)

const (
	DefaultWorkers   = 1
	DefaultBatchSize = 25
	DefaultPerPage   = 50
	DefaultMaxPages  = 1
)

// Catalog is the primary catalog as seen by the matcher. Search applies the
// gateway's retry policy; SearchOnce is a single attempt used for later pages.
type Catalog interface {
	Search(ctx context.Context, q catalog.SearchQuery, token string) (catalog.Page, error)
	SearchOnce(ctx context.Context, q catalog.SearchQuery, token string) (catalog.Page, error)
	FetchByIDs(ctx context.Context, ids []int64, token string) ([]catalog.Record, error)
}

// Resolver finds records through secondary catalogs.
type Resolver interface {
	Resolve(ctx context.Context, title string, primary []catalog.Record, token string) (fallback.Resolution, error)
}

// Dependencies are the collaborators a Matcher is built from. Caches default
// to process-local ones when nil.
type Dependencies struct {
	Catalog     Catalog
	Resolver    Resolver
	SearchCache *cache.Cache[catalog.Page]
	RecordCache *cache.Cache[[]catalog.Record]
	Logger      *slog.Logger
	Now         func() time.Time
}

// Options control matching behaviour.
type Options struct {
	Workers            int
	BatchSize          int
	PerPage            int
	MaxPages           int
	IgnoreOneShots     bool
	IgnoreAdult        bool
	AutoMatchThreshold int
	CaseSensitive      bool
	BypassCache        bool
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.PerPage <= 0 {
		o.PerPage = DefaultPerPage
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.AutoMatchThreshold < 0 {
		o.AutoMatchThreshold = 0
	}
	return o
}

// Matcher resolves tracker titles to ranked catalog candidates.
type Matcher struct {
	catalog  Catalog
	resolver Resolver
	searches *cache.Cache[catalog.Page]
	records  *cache.Cache[[]catalog.Record]
	logger   *slog.Logger
	now      func() time.Time
	opts     Options
	scorer   scoring.Scorer
}

// New validates deps and returns a Matcher.
func New(deps Dependencies, opts Options) (*Matcher, error) {
	if deps.Catalog == nil {
		return nil, services.Wrap(services.ErrConfiguration, "matcher", "new", "catalog is required", nil)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.SearchCache == nil {
		deps.SearchCache = cache.New[catalog.Page](context.Background(), cache.Options{Namespace: "search_cache", TTL: 30 * time.Minute, Now: deps.Now})
	}
	if deps.RecordCache == nil {
		deps.RecordCache = cache.New[[]catalog.Record](context.Background(), cache.Options{Namespace: "record_cache", TTL: 24 * time.Hour, Now: deps.Now})
	}
	opts = opts.withDefaults()
	return &Matcher{
		catalog:  deps.Catalog,
		resolver: deps.Resolver,
		searches: deps.SearchCache,
		records:  deps.RecordCache,
		logger:   logging.NewComponentLogger(deps.Logger, "matcher"),
		now:      deps.Now,
		opts:     opts,
		scorer:   scoring.Scorer{Normalize: textutil.Options{CaseSensitive: opts.CaseSensitive}},
	}, nil
}

// Options returns the effective options.
func (m *Matcher) Options() Options {
	return m.opts
}

// SearchOptions narrow an interactive search.
type SearchOptions struct {
	Page        int
	PerPage     int
	Filter      catalog.Filter
	BypassCache bool
}

// SearchResult is a ranked page of candidates.
type SearchResult struct {
	Matches  []catalog.Candidate `json:"matches"`
	PageInfo catalog.PageInfo    `json:"page_info"`
	Cached   bool                `json:"cached"`
}

// Search runs one catalog page for title and ranks it. Fallback sources are
// not consulted.
func (m *Matcher) Search(ctx context.Context, title, token string, opts SearchOptions) (SearchResult, error) {
	q := catalog.SearchQuery{Text: title, Page: opts.Page, PerPage: opts.PerPage, Filter: opts.Filter}.WithDefaults(m.opts.PerPage)
	if q.Text == "" {
		return SearchResult{}, services.Wrap(services.ErrValidation, "matcher", "search", "title is empty", nil)
	}
	key := cache.SearchKey(q)
	bypass := opts.BypassCache || m.opts.BypassCache

	page, cached := catalog.Page{}, false
	if !bypass {
		page, cached = m.searches.Get(key)
	}
	if !cached {
		var err error
		page, err = m.catalog.Search(ctx, q, token)
		if err != nil {
			return SearchResult{}, err
		}
		m.searches.Put(key, page)
	}

	return SearchResult{
		Matches:  m.scorer.Rank(catalog.Input{Title: title}, page.Records),
		PageInfo: page.PageInfo,
		Cached:   cached,
	}, nil
}

// MatchOne resolves a single input: a known catalog id is fetched directly,
// anything else goes through search, filtering and fallback.
func (m *Matcher) MatchOne(ctx context.Context, in catalog.Input, token string) (catalog.MatchResult, error) {
	if in.CatalogID > 0 {
		recs, err := m.catalog.FetchByIDs(ctx, []int64{in.CatalogID}, token)
		if err != nil && services.Halts(err) {
			return catalog.PendingResult(in), err
		}
		if err != nil {
			logging.WarnWithContext(m.logger, "direct id lookup failed; searching by title", "direct_fetch_failed",
				logging.String(logging.FieldTitle, in.Title),
				logging.Int64("catalog_id", in.CatalogID),
				logging.Error(err),
			)
		}
		for _, rec := range recs {
			if rec.ID == in.CatalogID {
				cache.IndexRecords(m.records, recs)
				return m.knownResult(in, rec), nil
			}
		}
	}
	if in.Title == "" {
		return catalog.PendingResult(in), nil
	}
	return m.matchTitle(ctx, in, token)
}

// InvalidateCache drops cached data for title, or everything when title is
// empty.
func (m *Matcher) InvalidateCache(ctx context.Context, title string) error {
	if textutil.NormalizeTitle(title, textutil.Options{}) == "" {
		return errors.Join(m.searches.Clear(ctx), m.records.Clear(ctx))
	}
	errRecord := m.records.Invalidate(ctx, cache.TitleKey(title))
	removed, errSearch := m.searches.InvalidatePrefix(ctx, cache.SearchPrefix(title))
	m.logger.Debug("cache invalidated",
		logging.String(logging.FieldTitle, title),
		logging.Int("search_entries_removed", removed))
	return errors.Join(errRecord, errSearch)
}

// CacheStats reports both cache namespaces.
func (m *Matcher) CacheStats() []cache.Stats {
	return []cache.Stats{m.searches.Stats(), m.records.Stats()}
}

// Flush persists both caches.
func (m *Matcher) Flush(ctx context.Context) error {
	return errors.Join(m.searches.Flush(ctx), m.records.Flush(ctx))
}
