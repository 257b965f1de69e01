package scoring

import (
	"regexp"
	"strings"
)

var seasonSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s+(?:season|part|cour|vol|volume|arc)\s*(?:\d+|[ivx]+)$`),
	regexp.MustCompile(`(?i)\s+\d+(?:st|nd|rd|th)\s+(?:season|part)$`),
	regexp.MustCompile(`(?i)\s+(?:final\s+)?(?:season|part)$`),
	regexp.MustCompile(`(?i)\s+(?:ii|iii|iv|v|vi|vii|viii|ix|x)$`),
	regexp.MustCompile(`\s+\d{1,2}$`),
}

// splitSeason removes one season or part suffix from a normalized title.
func splitSeason(normalized string) (string, bool) {
	for _, pattern := range seasonSuffixes {
		if loc := pattern.FindStringIndex(normalized); loc != nil && loc[0] > 0 {
			return strings.TrimSpace(normalized[:loc[0]]), true
		}
	}
	return normalized, false
}

// seasonMatch scores titles that differ only by a season suffix on the
// similarity of their shared stem, in the 0.8-0.9 band.
func seasonMatch(na, nb string) (Match, bool) {
	stemA, cutA := splitSeason(na)
	stemB, cutB := splitSeason(nb)
	if !cutA && !cutB {
		return Match{}, false
	}
	if stemA == "" || stemB == "" {
		return Match{}, false
	}
	sim := stemSimilarity(stemA, stemB)
	if sim < stemThreshold {
		return Match{}, false
	}
	return Match{Score: 0.8 + 0.1*sim, Strategy: StrategySeason}, true
}

func stemSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if isAcronymOf(a, b) || isAcronymOf(b, a) {
		return acronymStemScore
	}
	return max(editSimilarity(a, b), tokenOverlap(a, b))
}

var particles = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "no": {}, "to": {}, "wa": {}, "ga": {},
}

// isAcronymOf reports whether short spells the initials of long ("aot" for
// "attack on titan"), with or without particles.
func isAcronymOf(short, long string) bool {
	if strings.Contains(short, " ") || len([]rune(short)) < 2 {
		return false
	}
	words := strings.Fields(long)
	if len(words) < 2 {
		return false
	}
	var all, content strings.Builder
	for _, w := range words {
		first := []rune(w)[0]
		all.WriteRune(first)
		if _, skip := particles[strings.ToLower(w)]; !skip {
			content.WriteRune(first)
		}
	}
	lowered := strings.ToLower(short)
	return lowered == strings.ToLower(all.String()) || lowered == strings.ToLower(content.String())
}
