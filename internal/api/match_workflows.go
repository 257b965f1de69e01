package api

import (
	"context"
	"fmt"
	"log/slog"

	"mangamatch/internal/catalog"
	"mangamatch/internal/importer"
	"mangamatch/internal/logging"
	"mangamatch/internal/matcher"
	"mangamatch/internal/store"
)

// RunMatchRequest describes one batch run over an exported tracker file.
type RunMatchRequest struct {
	Path     string
	Format   importer.Format
	Progress matcher.ProgressFunc
	// Fresh discards previously saved decisions instead of merging them.
	Fresh bool
}

// RunMatchResult is what a batch run produced and persisted.
type RunMatchResult struct {
	Inputs int
	Batch  *matcher.Batch
	Saved  []catalog.MatchResult
}

// RunMatch imports the file, matches every entry under the run lock, merges
// the outcome with saved results, and persists the merged set. Partial
// batches from cancellation or rate limiting are saved too; the batch error is
// returned after persistence.
func (r *Runtime) RunMatch(ctx context.Context, req RunMatchRequest) (RunMatchResult, error) {
	logger := logging.NewComponentLogger(r.Logger, "workflow")
	inputs, err := importer.ReadFile(req.Path, req.Format)
	if err != nil {
		return RunMatchResult{}, err
	}
	logger.Info("tracker export imported",
		logging.String("path", req.Path),
		logging.Int("entries", len(inputs)))

	lock, err := store.AcquireRunLock(r.Config.LockPath())
	if err != nil {
		return RunMatchResult{}, err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			logger.Warn("run lock release failed", logging.Error(releaseErr))
		}
	}()

	batch, batchErr := r.Matcher.MatchBatch(ctx, inputs, r.Token(), req.Progress)
	result := RunMatchResult{Inputs: len(inputs), Batch: batch}
	if batch == nil {
		return result, batchErr
	}

	saved, err := r.persistBatch(context.WithoutCancel(ctx), batch, req.Fresh, logger)
	if err != nil {
		return result, err
	}
	result.Saved = saved
	return result, batchErr
}

func (r *Runtime) persistBatch(ctx context.Context, batch *matcher.Batch, fresh bool, logger *slog.Logger) ([]catalog.MatchResult, error) {
	merged := batch.Results
	if !fresh {
		previous, err := r.Store.LoadResults(ctx)
		if err != nil {
			return nil, err
		}
		merged = matcher.MergeResults(previous, batch.Results)
	}
	if err := r.Store.SaveResults(ctx, merged); err != nil {
		return nil, fmt.Errorf("save results: %w", err)
	}
	logger.Info("match results saved",
		logging.String(logging.FieldBatchID, batch.ID),
		logging.Int("saved", len(merged)),
		logging.Bool("fresh", fresh))
	return merged, nil
}

// ListResults returns saved results, optionally narrowed to one status.
func (r *Runtime) ListResults(ctx context.Context, status catalog.ResultStatus) ([]catalog.MatchResult, error) {
	results, err := r.Store.LoadResults(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return results, nil
	}
	filtered := results[:0]
	for _, res := range results {
		if res.Status == status {
			filtered = append(filtered, res)
		}
	}
	return filtered, nil
}

// DecideResult records a review decision for one saved result. A selected id
// of zero clears the selection.
func (r *Runtime) DecideResult(ctx context.Context, inputKey string, status catalog.ResultStatus, selected int64) (catalog.MatchResult, error) {
	res, err := r.Store.SetDecision(ctx, inputKey, status, selected)
	if err != nil {
		return catalog.MatchResult{}, err
	}
	logging.NewComponentLogger(r.Logger, "workflow").Info("result decided",
		logging.String(logging.FieldTitle, res.Input.Title),
		logging.String("status", string(res.Status)),
		logging.Int64("selected_id", selected))
	return res, nil
}
