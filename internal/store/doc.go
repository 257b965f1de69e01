// Package store persists mangamatch state in SQLite: the durable documents
// behind the search and record caches, and the saved match results that
// reruns merge against. It also provides the file lock that keeps two batch
// runs from sharing a data directory.
package store
