package scoring

import (
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"

	"mangamatch/internal/textutil"
)

// Strategy identifies which comparison produced a score.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyExact
	StrategyArticleOnly
	StrategySeason
	StrategyContainment
	StrategyTokenOverlap
	StrategyEditDistance
	StrategyWeak
)

func (s Strategy) String() string {
	switch s {
	case StrategyExact:
		return "exact"
	case StrategyArticleOnly:
		return "article_only"
	case StrategySeason:
		return "season"
	case StrategyContainment:
		return "containment"
	case StrategyTokenOverlap:
		return "token_overlap"
	case StrategyEditDistance:
		return "edit_distance"
	case StrategyWeak:
		return "weak"
	default:
		return "none"
	}
}

// Match is the outcome of comparing two titles.
type Match struct {
	Score    float64
	Strategy Strategy
}

const (
	articleOnlyScore      = 0.97
	containmentMinRunes   = 7
	tokenOverlapThreshold = 0.75
	shortTitleRunes       = 10
	shortEditThreshold    = 0.85
	longEditThreshold     = 0.7
	editScoreCap          = 0.96
	weakFloor             = 0.1
	stemThreshold         = 0.85
	acronymStemScore      = 0.9
)

// Scorer compares titles under a fixed normalization setting.
type Scorer struct {
	Normalize textutil.Options
}

// CompareTitles scores two raw titles with case-insensitive normalization.
func CompareTitles(a, b string) Match {
	return Scorer{}.CompareTitles(a, b)
}

// CompareTitles scores two raw titles. Either side being empty scores zero.
func (s Scorer) CompareTitles(a, b string) Match {
	na := textutil.NormalizeTitle(a, s.Normalize)
	nb := textutil.NormalizeTitle(b, s.Normalize)
	return compareNormalized(na, nb)
}

func compareNormalized(na, nb string) Match {
	if na == "" || nb == "" {
		return Match{}
	}
	if na == nb {
		return Match{Score: 1, Strategy: StrategyExact}
	}
	if sa, sb := stripArticles(na), stripArticles(nb); sa != "" && sa == sb {
		return Match{Score: articleOnlyScore, Strategy: StrategyArticleOnly}
	}
	if m, ok := seasonMatch(na, nb); ok {
		return m
	}
	if m, ok := containmentMatch(na, nb); ok {
		return m
	}

	overlap := tokenOverlap(na, nb)
	if overlap > tokenOverlapThreshold {
		score := 0.75 + 0.15*(overlap-tokenOverlapThreshold)/(1-tokenOverlapThreshold)
		return Match{Score: score, Strategy: StrategyTokenOverlap}
	}

	edit := editSimilarity(na, nb)
	threshold := longEditThreshold
	if max(utf8.RuneCountInString(na), utf8.RuneCountInString(nb)) < shortTitleRunes {
		threshold = shortEditThreshold
	}
	if edit >= threshold {
		return Match{Score: min(edit, editScoreCap), Strategy: StrategyEditDistance}
	}

	cosine := textutil.CosineSimilarity(textutil.NewFingerprint(na), textutil.NewFingerprint(nb))
	weak := max(overlap, edit, cosine)
	if weak >= weakFloor {
		return Match{Score: weak, Strategy: StrategyWeak}
	}
	return Match{}
}

var articles = map[string]struct{}{"a": {}, "an": {}, "the": {}}

func stripArticles(normalized string) string {
	words := strings.Fields(normalized)
	kept := words[:0:0]
	for _, w := range words {
		if _, ok := articles[strings.ToLower(w)]; ok {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func containmentMatch(na, nb string) (Match, bool) {
	shorter, longer := na, nb
	if utf8.RuneCountInString(shorter) > utf8.RuneCountInString(longer) {
		shorter, longer = longer, shorter
	}
	shortLen := utf8.RuneCountInString(shorter)
	if shortLen < containmentMinRunes || !strings.Contains(longer, shorter) {
		return Match{}, false
	}
	ratio := float64(shortLen) / float64(utf8.RuneCountInString(longer))
	return Match{Score: 0.8 + 0.05*ratio, Strategy: StrategyContainment}, true
}

// tokenOverlap returns shared tokens over the larger token count. A token that
// is a prefix of an unmatched token on the other side earns half credit.
func tokenOverlap(na, nb string) float64 {
	ta, tb := textutil.Tokens(na), textutil.Tokens(nb)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	used := make([]bool, len(tb))
	var shared float64
	for _, token := range ta {
		if idx := indexUnused(tb, used, func(other string) bool { return other == token }); idx >= 0 {
			used[idx] = true
			shared++
			continue
		}
		if idx := indexUnused(tb, used, func(other string) bool {
			return strings.HasPrefix(other, token) || strings.HasPrefix(token, other)
		}); idx >= 0 {
			used[idx] = true
			shared += 0.5
		}
	}
	return shared / float64(max(len(ta), len(tb)))
}

func indexUnused(tokens []string, used []bool, match func(string) bool) int {
	for i, token := range tokens {
		if !used[i] && match(token) {
			return i
		}
	}
	return -1
}

func editSimilarity(na, nb string) float64 {
	sim, err := edlib.StringsSimilarity(na, nb, edlib.Levenshtein)
	if err != nil {
		return 0
	}
	return float64(sim)
}
