package fallback

import (
	"context"
	"log/slog"

	"mangamatch/internal/anilist"
	"mangamatch/internal/catalog"
	"mangamatch/internal/logging"
	"mangamatch/internal/services"
)

// Hit is a catalog id discovered through a secondary source.
type Hit struct {
	CatalogID   int64
	SourceTitle string
	SourceSlug  string
}

// Source looks a title up in a secondary catalog and returns the primary
// catalog ids it links to.
type Source interface {
	Name() catalog.Provenance
	Resolve(ctx context.Context, title string) ([]Hit, error)
}

// Fetcher loads primary catalog records by id.
type Fetcher interface {
	FetchByIDs(ctx context.Context, ids []int64, token string) ([]catalog.Record, error)
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Records    []catalog.Record
	Provenance map[int64]catalog.Origin
}

// Resolver consults secondary sources when the primary search is empty.
type Resolver struct {
	fetcher Fetcher
	sources []Source
	logger  *slog.Logger
}

// NewResolver builds a resolver over the enabled sources, tried in order.
func NewResolver(fetcher Fetcher, logger *slog.Logger, sources ...Source) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		sources: sources,
		logger:  logging.NewComponentLogger(logger, "fallback"),
	}
}

// Enabled reports whether any source is configured.
func (r *Resolver) Enabled() bool {
	return r != nil && len(r.sources) > 0
}

// Resolve returns primary unchanged when it is non-empty. Otherwise each
// source is asked in turn, ids are de-duplicated with the first occurrence
// winning, and the records are fetched from the primary catalog in one call.
// Only rate limiting and cancellation are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, title string, primary []catalog.Record, token string) (Resolution, error) {
	if len(primary) > 0 {
		res := Resolution{Records: primary, Provenance: make(map[int64]catalog.Origin, len(primary))}
		for _, rec := range primary {
			res.Provenance[rec.ID] = catalog.Origin{Source: rec.Provenance()}
		}
		return res, nil
	}
	empty := Resolution{Provenance: map[int64]catalog.Origin{}}
	if !r.Enabled() {
		return empty, nil
	}
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldTitle, title))

	var (
		ids     []int64
		origins = make(map[int64]catalog.Origin)
	)
	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			return empty, services.Wrap(services.ErrCancelled, "fallback", "resolve", "cancelled between sources", err)
		}
		hits, err := src.Resolve(ctx, title)
		if err != nil {
			if services.IsCancellation(err) || ctx.Err() != nil {
				return empty, services.Wrap(services.ErrCancelled, "fallback", string(src.Name()), "cancelled", err)
			}
			logging.WarnWithContext(logger, "fallback source failed; trying next", "fallback_source_failed",
				logging.String("source", string(src.Name())),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "disable the source in [fallback] if it keeps failing"),
			)
			continue
		}
		for _, hit := range hits {
			if hit.CatalogID <= 0 {
				continue
			}
			if _, ok := origins[hit.CatalogID]; ok {
				continue
			}
			origins[hit.CatalogID] = catalog.Origin{
				Source:      src.Name(),
				SourceTitle: hit.SourceTitle,
				SourceSlug:  hit.SourceSlug,
			}
			ids = append(ids, hit.CatalogID)
		}
	}
	if len(ids) == 0 {
		logger.Debug("fallback found nothing", logging.Args(logging.DecisionAttrs("fallback", "empty", "no linked ids")...)...)
		return empty, nil
	}

	records, err := r.fetcher.FetchByIDs(ctx, ids, token)
	if err != nil {
		if services.Halts(err) {
			return empty, err
		}
		logging.WarnWithContext(logger, "fallback record fetch failed", "fallback_fetch_failed",
			logging.Int("id_count", len(ids)),
			logging.Error(err),
		)
		return empty, nil
	}

	byID := make(map[int64]catalog.Record, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}
	res := Resolution{Records: make([]catalog.Record, 0, len(ids)), Provenance: make(map[int64]catalog.Origin, len(ids))}
	for _, id := range ids {
		rec, ok := byID[id]
		if !ok {
			continue
		}
		origin := origins[id]
		rec.Origin = &origin
		res.Records = append(res.Records, rec)
		res.Provenance[id] = origin
	}
	attrs := append(logging.DecisionAttrs("fallback", "resolved", "secondary catalogs linked ids"),
		logging.Int("record_count", len(res.Records)),
		logging.String("catalog_ids", anilist.FormatIDs(ids)),
	)
	logger.Info("fallback resolved records", logging.Args(attrs...)...)
	return res, nil
}
