package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"mangamatch/internal/services"
)

// StatusError is a non-success response from the transport.
type StatusError struct {
	StatusCode        int
	RetryAfterSeconds int
	Message           string
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("catalog returned %d: %s", e.StatusCode, msg)
}

// Unwrap maps the status onto the services error markers.
func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return services.ErrRateLimited
	case e.StatusCode == http.StatusNotFound:
		return services.ErrNotFound
	case e.StatusCode == http.StatusRequestTimeout || e.StatusCode >= 500:
		return services.ErrTransient
	default:
		return nil
	}
}

// RateLimitedError reports that the catalog refused a request for exceeding
// its quota. The gateway never retries it.
type RateLimitedError struct {
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfterSeconds > 0 {
		return fmt.Sprintf("rate limited by catalog; retry after %ds", e.RetryAfterSeconds)
	}
	return "rate limited by catalog"
}

func (e *RateLimitedError) Unwrap() error {
	return services.ErrRateLimited
}

// AsRateLimited extracts a RateLimitedError from err, converting a 429
// StatusError when needed.
func AsRateLimited(err error) (*RateLimitedError, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl, true
	}
	var status *StatusError
	if errors.As(err, &status) && status.StatusCode == http.StatusTooManyRequests {
		return &RateLimitedError{RetryAfterSeconds: status.RetryAfterSeconds}, true
	}
	return nil, false
}

// IsTransient reports whether err is worth another attempt: server errors,
// timeouts and dropped connections. Rate limits are not transient here.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, services.ErrRateLimited) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, services.ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var status *StatusError
	if errors.As(err, &status) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	message := strings.ToLower(err.Error())
	for _, token := range []string{
		"timeout",
		"deadline exceeded",
		"connection reset",
		"connection refused",
		"temporary failure",
		"awaiting headers",
		"unexpected eof",
	} {
		if strings.Contains(message, token) {
			return true
		}
	}
	return false
}
