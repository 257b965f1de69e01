package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mangamatch/internal/gateway"
	"mangamatch/internal/services"
)

const (
	// DefaultEndpoint is the public AniList GraphQL endpoint.
	DefaultEndpoint    = "https://graphql.anilist.co"
	defaultHTTPTimeout = 15 * time.Second
	maxErrorBody       = 64 << 10
)

// HTTPTransport posts GraphQL documents to AniList.
type HTTPTransport struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
}

var _ gateway.Transport = (*HTTPTransport)(nil)

// Option configures an HTTPTransport.
type Option func(*HTTPTransport)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(t *HTTPTransport) {
		if client != nil {
			t.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(t *HTTPTransport) {
		if timeout > 0 {
			t.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewHTTPTransport creates a transport for endpoint.
func NewHTTPTransport(endpoint string, opts ...Option) (*HTTPTransport, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	t := &HTTPTransport{
		endpoint:   endpoint,
		userAgent:  "mangamatch",
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type graphQLEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// Send performs one POST. Non-2xx statuses are returned as
// *gateway.StatusError carrying Retry-After when present.
func (t *HTTPTransport) Send(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	body, err := json.Marshal(graphQLRequest{Query: req.Query, Variables: req.Variables})
	if err != nil {
		return gateway.Response{}, fmt.Errorf("encode graphql request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return gateway.Response{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", t.userAgent)
	if token := strings.TrimSpace(req.Token); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	requestStart := time.Now()
	resp, err := t.httpClient.Do(httpReq)
	latency := time.Since(requestStart)
	if err != nil {
		return gateway.Response{}, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gateway.Response{}, statusError(resp)
	}

	var envelope graphQLEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return gateway.Response{}, services.Wrap(services.ErrMalformedResponse, "anilist", "decode", "invalid graphql envelope", err)
	}
	if len(envelope.Errors) > 0 && (len(envelope.Data) == 0 || string(envelope.Data) == "null") {
		first := envelope.Errors[0]
		status := first.Status
		if status == 0 {
			status = http.StatusBadRequest
		}
		return gateway.Response{}, &gateway.StatusError{StatusCode: status, Message: first.Message}
	}
	if len(envelope.Data) == 0 {
		return gateway.Response{}, services.Wrap(services.ErrMalformedResponse, "anilist", "decode", "response missing data", nil)
	}
	return gateway.Response{Data: envelope.Data}, nil
}

func statusError(resp *http.Response) *gateway.StatusError {
	out := &gateway.StatusError{
		StatusCode:        resp.StatusCode,
		RetryAfterSeconds: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var envelope graphQLEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Errors) > 0 {
		out.Message = envelope.Errors[0].Message
	} else {
		out.Message = strings.TrimSpace(string(raw))
	}
	return out
}

func parseRetryAfter(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return max(secs, 0)
	}
	if at, err := http.ParseTime(value); err == nil {
		return max(int(time.Until(at).Seconds()), 0)
	}
	return 0
}

// IsNotFound reports whether err is AniList's 404 for a missing record.
func IsNotFound(err error) bool {
	var status *gateway.StatusError
	return errors.As(err, &status) && status.StatusCode == http.StatusNotFound
}
