package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"mangamatch/internal/logging"
	"mangamatch/internal/services"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

// Request is one GraphQL call.
type Request struct {
	Query     string
	Variables map[string]any
	Token     string
}

// Response carries the raw "data" member of a successful call.
type Response struct {
	Data json.RawMessage
}

// Transport performs a single remote call. Failures with an HTTP status are
// reported as *StatusError.
type Transport interface {
	Send(ctx context.Context, req Request) (Response, error)
}

// Options tunes a Gateway.
type Options struct {
	RequestsPerMinute int
	MaxRetries        int
	BaseDelay         time.Duration
	Clock             Clock
	Logger            *slog.Logger
}

// Gateway is the single admission point for catalog requests in a process.
type Gateway struct {
	transport  Transport
	limiter    *Limiter
	clock      Clock
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// New builds a gateway and starts its limiter.
func New(transport Transport, opts Options) *Gateway {
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	return &Gateway{
		transport:  transport,
		limiter:    NewLimiter(opts.RequestsPerMinute, opts.Clock),
		clock:      opts.Clock,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		logger:     logging.NewComponentLogger(opts.Logger, "gateway"),
	}
}

// Close stops admitting requests.
func (g *Gateway) Close() {
	g.limiter.Close()
}

// Acquire waits for one admission without sending anything.
func (g *Gateway) Acquire(ctx context.Context) error {
	if err := g.limiter.Acquire(ctx); err != nil {
		return admissionError(err)
	}
	return nil
}

// Send admits and performs exactly one attempt. A 429 comes back as
// *RateLimitedError.
func (g *Gateway) Send(ctx context.Context, req Request) (Response, error) {
	if err := g.Acquire(ctx); err != nil {
		return Response{}, err
	}
	resp, err := g.transport.Send(ctx, req)
	if err != nil {
		if rl, ok := AsRateLimited(err); ok {
			return Response{}, rl
		}
		if ctx.Err() != nil {
			return Response{}, services.Wrap(services.ErrCancelled, "gateway", "send", "request cancelled", ctx.Err())
		}
		return Response{}, err
	}
	return resp, nil
}

// Execute sends req, retrying transient failures with a delay of
// BaseDelay*attempt. Every attempt goes through the limiter.
func (g *Gateway) Execute(ctx context.Context, req Request) (Response, error) {
	logger := logging.WithContext(ctx, g.logger)
	for attempt := 1; ; attempt++ {
		resp, err := g.Send(ctx, req)
		if err == nil {
			return resp, nil
		}
		if services.Halts(err) || attempt > g.maxRetries || !IsTransient(err) {
			return Response{}, err
		}

		delay := g.baseDelay * time.Duration(attempt)
		logging.WarnWithContext(logger, "catalog request failed; retrying", "gateway_retry",
			logging.Int("attempt", attempt),
			logging.Int("max_retries", g.maxRetries),
			logging.Duration("delay", delay),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network connectivity to the catalog"),
			logging.String(logging.FieldImpact, "lookups slow down while the catalog recovers"),
		)
		if err := sleepWithContext(ctx, g.clock, delay); err != nil {
			return Response{}, services.Wrap(services.ErrCancelled, "gateway", "retry", "backoff interrupted", err)
		}
	}
}

func admissionError(err error) error {
	if err == ErrLimiterClosed {
		return services.Wrap(services.ErrCancelled, "gateway", "acquire", "limiter closed", err)
	}
	return services.Wrap(services.ErrCancelled, "gateway", "acquire", "admission cancelled", err)
}
