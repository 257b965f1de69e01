package textutil

import (
	"math"
	"strings"
	"unicode/utf8"
)

// MinTokenLength is the shortest token that counts toward overlap scoring.
const MinTokenLength = 3

// Tokens splits an already-normalized title into tokens of at least
// MinTokenLength runes.
func Tokens(normalized string) []string {
	raw := strings.Fields(normalized)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		if utf8.RuneCountInString(token) < MinTokenLength {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// Fingerprint represents a term-frequency vector for title similarity.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint creates a fingerprint from an already-normalized title.
// Returns nil if the title produces no usable tokens.
func NewFingerprint(normalized string) *Fingerprint {
	tokens := Tokens(normalized)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var norm float64
	for _, count := range counts {
		norm += count * count
	}
	return &Fingerprint{tokens: counts, norm: math.Sqrt(norm)}
}

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}
