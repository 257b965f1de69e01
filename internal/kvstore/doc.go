// Package kvstore defines the small durable key-value contract the caches
// persist through, with in-memory, bbolt, and Redis implementations. The
// SQLite implementation lives in package store alongside saved match results.
package kvstore
