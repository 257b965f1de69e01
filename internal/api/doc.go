// Package api is the workflow layer shared by the CLI and the HTTP server. It
// turns a loaded configuration into a Runtime (results database, cache
// backend, rate-limited catalog gateway, fallback sources, matcher) and
// exposes the multi-step workflows callers run against it.
//
// # Workflows
//
// RunMatch: import a tracker export, take the run lock, match every entry,
// merge with previously saved decisions, and persist the merged set.
//
// ListResults/DecideResult: read and review saved results.
//
// # Views
//
// ResultView and CandidateView flatten domain results for tables and JSON.
// DTOs use camelCase JSON tags; timestamps use RFC3339 with milliseconds.
//
// # Cache backends
//
// OpenCacheStore picks the key-value store behind both cache namespaces:
// sqlite (shared with the results database), bolt, redis, or memory.
package api
