package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"mangamatch/internal/gateway"
	"mangamatch/internal/services"
)

type scriptedTransport struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (s *scriptedTransport) Send(ctx context.Context, _ gateway.Request) (gateway.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return gateway.Response{}, err
		}
	}
	return gateway.Response{Data: json.RawMessage(`{"ok":true}`)}, nil
}

func (s *scriptedTransport) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newGateway(tr gateway.Transport) *gateway.Gateway {
	return gateway.New(tr, gateway.Options{
		RequestsPerMinute: 0,
		MaxRetries:        gateway.DefaultMaxRetries,
		BaseDelay:         time.Millisecond,
	})
}

func TestExecuteRetriesTransientFailures(t *testing.T) {
	tr := &scriptedTransport{errs: []error{
		&gateway.StatusError{StatusCode: 502},
		&gateway.StatusError{StatusCode: 503},
	}}
	gw := newGateway(tr)
	defer gw.Close()

	resp, err := gw.Execute(context.Background(), gateway.Request{Query: "q"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if string(resp.Data) != `{"ok":true}` {
		t.Fatalf("unexpected data %s", resp.Data)
	}
	if tr.Calls() != 3 {
		t.Fatalf("expected 3 attempts, got %d", tr.Calls())
	}
}

func TestExecuteSurfacesAfterRetriesExhausted(t *testing.T) {
	fail := &gateway.StatusError{StatusCode: 500, Message: "boom"}
	tr := &scriptedTransport{errs: []error{fail, fail, fail, fail, fail}}
	gw := newGateway(tr)
	defer gw.Close()

	_, err := gw.Execute(context.Background(), gateway.Request{})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if tr.Calls() != 1+gateway.DefaultMaxRetries {
		t.Fatalf("expected %d attempts, got %d", 1+gateway.DefaultMaxRetries, tr.Calls())
	}
}

func TestExecuteDoesNotRetryRateLimit(t *testing.T) {
	tr := &scriptedTransport{errs: []error{&gateway.StatusError{StatusCode: 429, RetryAfterSeconds: 42}}}
	gw := newGateway(tr)
	defer gw.Close()

	_, err := gw.Execute(context.Background(), gateway.Request{})
	var rl *gateway.RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitedError, got %T %v", err, err)
	}
	if rl.RetryAfterSeconds != 42 {
		t.Fatalf("expected retry-after 42, got %d", rl.RetryAfterSeconds)
	}
	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatal("RateLimitedError must unwrap to ErrRateLimited")
	}
	if tr.Calls() != 1 {
		t.Fatalf("rate limit must not be retried, got %d calls", tr.Calls())
	}
}

func TestExecuteDoesNotRetryClientErrors(t *testing.T) {
	tr := &scriptedTransport{errs: []error{&gateway.StatusError{StatusCode: 400, Message: "bad query"}}}
	gw := newGateway(tr)
	defer gw.Close()

	if _, err := gw.Execute(context.Background(), gateway.Request{}); err == nil {
		t.Fatal("expected error")
	}
	if tr.Calls() != 1 {
		t.Fatalf("expected a single attempt, got %d", tr.Calls())
	}
}

func TestExecuteBackoffGrowsWithAttempt(t *testing.T) {
	clock := newFakeClock()
	fail := &gateway.StatusError{StatusCode: 503}
	tr := &scriptedTransport{errs: []error{fail, fail}}
	gw := gateway.New(tr, gateway.Options{MaxRetries: 3, BaseDelay: time.Second, Clock: clock})
	defer gw.Close()

	done := make(chan error, 1)
	start := clock.Now()
	go func() {
		_, err := gw.Execute(context.Background(), gateway.Request{})
		done <- err
	}()

	// First backoff is 1s, second is 2s.
	waitFor(t, "first backoff", func() bool { return clock.Timers() == 1 && tr.Calls() == 1 })
	clock.Advance(time.Second)
	waitFor(t, "second backoff", func() bool { return clock.Timers() == 1 && tr.Calls() == 2 })
	clock.Advance(time.Second)
	select {
	case <-done:
		t.Fatal("second retry fired before its 2s backoff")
	case <-time.After(20 * time.Millisecond):
	}
	clock.Advance(time.Second)

	if err := <-done; err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if elapsed := clock.Now().Sub(start); elapsed != 3*time.Second {
		t.Fatalf("expected 3s of backoff, got %v", elapsed)
	}
}

func TestExecuteStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gw := newGateway(&scriptedTransport{})
	defer gw.Close()

	_, err := gw.Execute(ctx, gateway.Request{})
	if !services.IsCancellation(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", &gateway.StatusError{StatusCode: 503}, true},
		{"request timeout", &gateway.StatusError{StatusCode: 408}, true},
		{"bad request", &gateway.StatusError{StatusCode: 400}, false},
		{"rate limited", &gateway.StatusError{StatusCode: 429}, false},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"malformed", services.Wrap(services.ErrMalformedResponse, "anilist", "decode", "bad json", nil), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := gateway.IsTransient(tc.err); got != tc.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
