// Package cache provides the generic TTL cache used for catalog lookups.
//
// Each cache owns one namespace in a kvstore.Store and persists all of its
// entries as a single JSON document mapping key to {"data", "timestamp"}.
// Writes are coalesced by a debounce timer; invalidation and clearing are
// written through immediately. Entries carry no size bound and expire only by
// age.
//
// The key helpers build the two key families in use: search responses keyed by
// query text plus pagination and filter, and resolved records keyed by title.
package cache
