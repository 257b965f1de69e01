// Package textutil normalizes manga titles for comparison and provides the
// token helpers the scorer builds on.
//
// NormalizeTitle is pure and idempotent: normalizing an already-normalized
// title returns it unchanged. Fingerprints are term-frequency vectors over
// normalized tokens and are compared with cosine similarity.
package textutil
