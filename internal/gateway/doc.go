// Package gateway is the process-wide admission point for catalog requests.
//
// A Limiter queues callers in arrival order and releases them no closer
// together than 60s divided by the configured requests per minute. Gateway
// layers retries on top: transient failures are retried up to MaxRetries
// times with a linearly growing delay, while an HTTP 429 is surfaced at once
// as *RateLimitedError so batch runs can stop spending quota.
//
// Transports only need to implement Send; internal/anilist provides the HTTP
// one.
package gateway
