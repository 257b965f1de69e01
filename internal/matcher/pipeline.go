package matcher

import (
	"context"
	"log/slog"

	"mangamatch/internal/cache"
	"mangamatch/internal/catalog"
	"mangamatch/internal/logging"
	"mangamatch/internal/services"
)

// matchTitle runs the per-title pipeline: record cache, paged search,
// filters, fallback, then cache writes. Only halting errors are returned.
func (m *Matcher) matchTitle(ctx context.Context, in catalog.Input, token string) (catalog.MatchResult, error) {
	logger := logging.WithContext(ctx, m.logger).With(logging.String(logging.FieldTitle, in.Title))
	titleKey := cache.TitleKey(in.Title)

	if !m.opts.BypassCache {
		if recs, ok := m.records.Get(titleKey); ok {
			logger.Debug("record cache hit", logging.Int("records", len(recs)))
			return m.buildResult(in, m.filter(recs)), nil
		}
	}

	records, cacheable, err := m.searchPages(services.WithStage(ctx, "search"), in.Title, token)
	if err != nil {
		if services.Halts(err) {
			return catalog.PendingResult(in), err
		}
		logging.WarnWithContext(logger, "catalog search failed; treating as no results", "search_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "rerun the batch later; pending titles are retried"),
		)
	}

	filtered := m.filter(records)
	if len(filtered) == 0 && m.resolver != nil {
		if err := ctx.Err(); err != nil {
			return catalog.PendingResult(in), services.Wrap(services.ErrCancelled, "matcher", "fallback", "cancelled", err)
		}
		res, err := m.resolver.Resolve(services.WithStage(ctx, "fallback"), in.Title, nil, token)
		if err != nil {
			return catalog.PendingResult(in), err
		}
		if len(res.Records) > 0 {
			records = catalog.MergeRecords(records, res.Records...)
			filtered = m.filter(res.Records)
			cacheable = true
		}
	}

	if cacheable && len(records) > 0 {
		m.records.Put(titleKey, records)
		cache.IndexRecords(m.records, records)
	}

	result := m.buildResult(in, filtered)
	logDecision(logger, result)
	return result, nil
}

// searchPages collects up to MaxPages search pages, consulting the search
// cache per page. cacheable is false when a fetch failed.
func (m *Matcher) searchPages(ctx context.Context, title, token string) ([]catalog.Record, bool, error) {
	var all []catalog.Record
	for pageNum := 1; pageNum <= m.opts.MaxPages; pageNum++ {
		q := catalog.SearchQuery{Text: title, Page: pageNum}.WithDefaults(m.opts.PerPage)
		if q.Text == "" {
			return nil, false, nil
		}
		key := cache.SearchKey(q)

		page, ok := catalog.Page{}, false
		if !m.opts.BypassCache {
			page, ok = m.searches.Get(key)
		}
		if !ok {
			if err := ctx.Err(); err != nil {
				return all, false, services.Wrap(services.ErrCancelled, "matcher", "search", "cancelled before request", err)
			}
			var err error
			if pageNum == 1 {
				page, err = m.catalog.Search(ctx, q, token)
			} else {
				page, err = m.catalog.SearchOnce(ctx, q, token)
			}
			if err != nil {
				return all, false, err
			}
			m.searches.Put(key, page)
		}

		all = catalog.MergeRecords(all, page.Records...)
		if !page.PageInfo.HasNextPage {
			break
		}
	}
	return all, true, nil
}

func (m *Matcher) filter(records []catalog.Record) []catalog.Record {
	if !m.opts.IgnoreOneShots && !m.opts.IgnoreAdult {
		return records
	}
	out := make([]catalog.Record, 0, len(records))
	for _, rec := range records {
		if m.opts.IgnoreOneShots && rec.Format == catalog.FormatOneShot {
			continue
		}
		if m.opts.IgnoreAdult && rec.IsAdult {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (m *Matcher) buildResult(in catalog.Input, records []catalog.Record) catalog.MatchResult {
	result := catalog.MatchResult{
		Input:      in,
		Candidates: m.scorer.Rank(in, records),
		Status:     catalog.StatusPending,
	}
	if result.Candidates == nil {
		result.Candidates = []catalog.Candidate{}
	}
	top, ok := result.TopCandidate()
	if ok && m.opts.AutoMatchThreshold > 0 && top.Confidence >= m.opts.AutoMatchThreshold {
		rec := top.Record
		result.Status = catalog.StatusMatched
		result.Selected = &rec
		result.MatchedAt = m.now()
	}
	return result
}

func (m *Matcher) knownResult(in catalog.Input, rec catalog.Record) catalog.MatchResult {
	result := catalog.MatchResult{
		Input:      in,
		Candidates: m.scorer.Rank(in, []catalog.Record{rec}),
		Status:     catalog.StatusMatched,
		Selected:   &rec,
		MatchedAt:  m.now(),
	}
	return result
}

func logDecision(logger *slog.Logger, result catalog.MatchResult) {
	top, ok := result.TopCandidate()
	if !ok {
		logger.Debug("no candidates", logging.Args(logging.DecisionAttrs("match", string(result.Status), "catalog returned nothing usable")...)...)
		return
	}
	attrs := append(logging.DecisionAttrs("match", string(result.Status), "ranked candidates"),
		logging.Int("candidates", len(result.Candidates)),
		logging.Int("top_confidence", top.Confidence),
		logging.Int64("top_id", top.Record.ID),
		logging.String("top_title", top.Record.DisplayTitle()),
		logging.String("provenance", string(top.Provenance)),
	)
	logger.Debug("title matched", logging.Args(attrs...)...)
}
