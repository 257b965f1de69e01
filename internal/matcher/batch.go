package matcher

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mangamatch/internal/cache"
	"mangamatch/internal/catalog"
	"mangamatch/internal/gateway"
	"mangamatch/internal/logging"
	"mangamatch/internal/services"
)

// ProgressFunc is called once per input as it resolves. Calls are serialized.
type ProgressFunc func(completed, total int, title string)

// Batch is the outcome of MatchBatch. Results is index-aligned with the
// inputs; unresolved inputs are pending with no candidates.
type Batch struct {
	ID          string                `json:"id"`
	Results     []catalog.MatchResult `json:"results"`
	Completed   int                   `json:"completed"`
	Cancelled   bool                  `json:"cancelled"`
	RateLimited bool                  `json:"rate_limited"`
	StartedAt   time.Time             `json:"started_at"`
	FinishedAt  time.Time             `json:"finished_at"`
}

// Counts tallies results by status.
func (b *Batch) Counts() map[catalog.ResultStatus]int {
	counts := make(map[catalog.ResultStatus]int)
	for _, r := range b.Results {
		counts[r.Status]++
	}
	return counts
}

type progressTracker struct {
	mu        sync.Mutex
	done      []bool
	completed int
	total     int
	fn        ProgressFunc
	sampler   *logging.ProgressSampler
	onLog     func(completed, total int)
}

func (p *progressTracker) mark(index int, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done[index] {
		return
	}
	p.done[index] = true
	p.completed++
	if p.fn != nil {
		p.fn(p.completed, p.total, title)
	}
	if p.sampler.Observe("matching", p.completed, p.total) {
		p.onLog(p.completed, p.total)
	}
}

func (p *progressTracker) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed
}

// MatchBatch resolves inputs with Workers concurrent pipelines.
//
// Cancelling ctx stops admission of new titles; the batch comes back with
// Cancelled set and a nil error. A rate-limited response stops the run and is
// returned as *gateway.RateLimitedError alongside the partial batch.
func (m *Matcher) MatchBatch(ctx context.Context, inputs []catalog.Input, token string, onProgress ProgressFunc) (*Batch, error) {
	batch := &Batch{
		ID:        uuid.NewString(),
		Results:   make([]catalog.MatchResult, len(inputs)),
		StartedAt: m.now(),
	}
	for i, in := range inputs {
		batch.Results[i] = catalog.PendingResult(in)
	}
	if len(inputs) == 0 {
		batch.FinishedAt = m.now()
		return batch, nil
	}

	ctx = services.WithBatchID(ctx, batch.ID)
	logger := logging.WithContext(ctx, m.logger)
	logger.Info("batch started",
		logging.Int("inputs", len(inputs)),
		logging.Int("workers", m.opts.Workers))

	tracker := &progressTracker{
		done:    make([]bool, len(inputs)),
		total:   len(inputs),
		fn:      onProgress,
		sampler: logging.NewProgressSampler(10),
		onLog: func(completed, total int) {
			logger.Info("batch progress", logging.Int("completed", completed), logging.Int("total", total))
		},
	}

	m.syncRecordCache()

	finish := func(err error) (*Batch, error) {
		batch.Completed = tracker.count()
		batch.FinishedAt = m.now()
		if flushErr := m.Flush(context.WithoutCancel(ctx)); flushErr != nil {
			logging.WarnWithContext(logger, "cache flush after batch failed", "cache_flush_failed", logging.Error(flushErr))
		}
		var rl *gateway.RateLimitedError
		switch {
		case errors.As(err, &rl):
			batch.RateLimited = true
			logging.WarnWithContext(logger, "batch halted by catalog rate limit", "batch_rate_limited",
				logging.Int("completed", batch.Completed),
				logging.Int("retry_after_seconds", rl.RetryAfterSeconds),
				logging.String(logging.FieldErrorHint, "wait for the retry window, then rerun; finished titles are kept"),
				logging.String(logging.FieldImpact, "remaining titles stay pending"),
			)
			return batch, rl
		case err != nil && !services.IsCancellation(err):
			return batch, err
		case ctx.Err() != nil || err != nil:
			batch.Cancelled = true
			logger.Info("batch cancelled", logging.Int("completed", batch.Completed), logging.Int("total", len(inputs)))
			return batch, nil
		}
		logger.Info("batch finished",
			logging.Int("completed", batch.Completed),
			logging.Duration("elapsed", batch.FinishedAt.Sub(batch.StartedAt)))
		return batch, nil
	}

	queue, err := m.partition(ctx, inputs, token, batch, tracker)
	if err != nil {
		return finish(err)
	}
	return finish(m.runWorkers(ctx, inputs, token, queue, batch, tracker))
}

// partition resolves cached titles and known ids up front and returns the
// indexes that still need a search, in input order.
func (m *Matcher) partition(ctx context.Context, inputs []catalog.Input, token string, batch *Batch, tracker *progressTracker) ([]int, error) {
	var known, queue []int
	for i, in := range inputs {
		if in.CatalogID > 0 {
			known = append(known, i)
			continue
		}
		if !m.opts.BypassCache {
			if recs, ok := m.records.Get(cache.TitleKey(in.Title)); ok {
				batch.Results[i] = m.buildResult(in, m.filter(recs))
				tracker.mark(i, in.Title)
				continue
			}
		}
		queue = append(queue, i)
	}
	if len(known) == 0 {
		return queue, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrCancelled, "matcher", "partition", "cancelled before direct fetch", err)
	}
	ids := make([]int64, 0, len(known))
	for _, i := range known {
		ids = append(ids, inputs[i].CatalogID)
	}
	fetched := make(map[int64]catalog.Record, len(ids))
	for chunk := range slices.Chunk(ids, m.opts.BatchSize) {
		recs, err := m.catalog.FetchByIDs(services.WithStage(ctx, "direct"), chunk, token)
		if err != nil {
			if services.Halts(err) {
				return nil, err
			}
			logging.WarnWithContext(logging.WithContext(ctx, m.logger), "direct id fetch failed; searching by title", "direct_fetch_failed",
				logging.Int("id_count", len(chunk)),
				logging.Error(err),
			)
			continue
		}
		for _, rec := range recs {
			fetched[rec.ID] = rec
		}
		cache.IndexRecords(m.records, recs)
	}

	for _, i := range known {
		in := inputs[i]
		if rec, ok := fetched[in.CatalogID]; ok {
			batch.Results[i] = m.knownResult(in, rec)
			tracker.mark(i, in.Title)
			continue
		}
		if in.Title != "" {
			queue = append(queue, i)
			continue
		}
		tracker.mark(i, in.Title)
	}
	slices.Sort(queue)
	return queue, nil
}

func (m *Matcher) runWorkers(ctx context.Context, inputs []catalog.Input, token string, queue []int, batch *Batch, tracker *progressTracker) error {
	if len(queue) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	work := make(chan int)

	g.Go(func() error {
		defer close(work)
		for _, i := range queue {
			if gctx.Err() != nil {
				return nil
			}
			select {
			case work <- i:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for range min(m.opts.Workers, len(queue)) {
		g.Go(func() error {
			for i := range work {
				if gctx.Err() != nil {
					return nil
				}
				in := inputs[i]
				result, err := m.matchTitle(gctx, in, token)
				if err != nil {
					if services.IsCancellation(err) {
						return nil
					}
					return err
				}
				if gctx.Err() != nil {
					return nil
				}
				batch.Results[i] = result
				tracker.mark(i, in.Title)
			}
			return nil
		})
	}
	return g.Wait()
}

// syncRecordCache copies unfiltered first-page search responses into the
// record cache so titles searched interactively resolve without a request.
func (m *Matcher) syncRecordCache() {
	copied := 0
	m.searches.Range(func(key string, page catalog.Page, _ time.Time) bool {
		parts, ok := cache.ParseSearchKey(key)
		if !ok || parts.Page != 1 || parts.Filtered || len(page.Records) == 0 {
			return true
		}
		titleKey := cache.TitleKey(parts.Text)
		if _, exists := m.records.Get(titleKey); exists {
			return true
		}
		m.records.Put(titleKey, page.Records)
		copied++
		return true
	})
	if copied > 0 {
		m.logger.Debug("record cache synced from search cache", logging.Int("entries", copied))
	}
}
