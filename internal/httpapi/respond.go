package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"mangamatch/internal/gateway"
	"mangamatch/internal/logging"
	"mangamatch/internal/services"
	"mangamatch/internal/store"
)

// statusClientClosed is reported when the caller went away mid-request.
const statusClientClosed = 499

type errorBody struct {
	Error             string `json:"error"`
	Code              string `json:"code"`
	RequestID         string `json:"requestId,omitempty"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	body := errorBody{Error: message, Code: code}
	if id, ok := services.RequestIDFromContext(r.Context()); ok {
		body.RequestID = id
	}
	writeJSON(w, status, body)
}

// classify maps a domain error onto an HTTP status and a stable code.
func classify(err error) (int, string) {
	var rl *gateway.RateLimitedError
	switch {
	case errors.As(err, &rl), errors.Is(err, services.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, services.ErrNotFound), errors.Is(err, store.ErrResultNotFound):
		return http.StatusNotFound, "not_found"
	case services.IsCancellation(err), errors.Is(err, context.Canceled):
		return statusClientClosed, "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, services.ErrTransient), errors.Is(err, services.ErrMalformedResponse):
		return http.StatusBadGateway, "upstream"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	body := errorBody{Error: err.Error(), Code: code}
	if id, ok := services.RequestIDFromContext(r.Context()); ok {
		body.RequestID = id
	}
	var rl *gateway.RateLimitedError
	if errors.As(err, &rl) && rl.RetryAfterSeconds > 0 {
		body.RetryAfterSeconds = rl.RetryAfterSeconds
		w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfterSeconds))
	}
	if status >= 500 {
		logging.ErrorWithContext(logging.WithContext(r.Context(), h.logger), "api request failed", "api_request_failed",
			logging.String("path", r.URL.Path),
			logging.Error(err))
	}
	if status == http.StatusInternalServerError {
		body.Error = http.StatusText(status)
	}
	writeJSON(w, status, body)
}
