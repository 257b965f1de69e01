// Package catalog holds the data model shared by the scorer, caches, gateway
// clients, fallback sources, and the batch matcher: catalog records, search
// queries and pages, ranked candidates, tracker inputs, and match results.
package catalog
