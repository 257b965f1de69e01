package logging

import (
	"context"
	"log/slog"

	"mangamatch/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldBatchID is the standardized structured logging key for batch run identifiers.
	FieldBatchID = "batch_id"
	// FieldStage is the standardized structured logging key for matching stages.
	FieldStage = "stage"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a log line for filtering (e.g. "cache_flush_failed").
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType names the decision being logged.
	FieldDecisionType = "decision_type"
	// FieldTitle is the input title being matched.
	FieldTitle = "title"
)

// WithContext tags logger with the batch id, stage, and request id carried
// by ctx, when present.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var fields []Attr
	for _, f := range []struct {
		key    string
		lookup func(context.Context) (string, bool)
	}{
		{FieldBatchID, services.BatchIDFromContext},
		{FieldStage, services.StageFromContext},
		{FieldCorrelationID, services.RequestIDFromContext},
	} {
		if value, ok := f.lookup(ctx); ok {
			fields = append(fields, String(f.key, value))
		}
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
