package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Options tunes title normalization.
type Options struct {
	// CaseSensitive keeps letter case intact.
	CaseSensitive bool
}

// homoglyphs maps Cyrillic and Greek letters that render like Latin ones.
// Only applied inside words that already contain Latin letters, so genuine
// Cyrillic or Greek titles are left alone.
var homoglyphs = map[rune]rune{
	'А': 'A', 'В': 'B', 'Е': 'E', 'К': 'K', 'М': 'M', 'Н': 'H', 'О': 'O',
	'Р': 'P', 'С': 'C', 'Т': 'T', 'Х': 'X', 'У': 'Y', 'Ѕ': 'S', 'І': 'I', 'Ј': 'J',
	'а': 'a', 'е': 'e', 'о': 'o', 'р': 'p', 'с': 'c', 'у': 'y', 'х': 'x',
	'ѕ': 's', 'і': 'i', 'ј': 'j', 'ԁ': 'd', 'һ': 'h', 'ԛ': 'q', 'ԝ': 'w',
	'Ԁ': 'D', 'Һ': 'H', 'Ԛ': 'Q', 'Ԝ': 'W',
	'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Ζ': 'Z', 'Η': 'H', 'Ι': 'I', 'Κ': 'K',
	'Μ': 'M', 'Ν': 'N', 'Ο': 'O', 'Ρ': 'P', 'Τ': 'T', 'Υ': 'Y', 'Χ': 'X',
	'ο': 'o', 'ν': 'v', 'ι': 'i',
}

var apostrophes = map[rune]struct{}{
	'\'': {}, '’': {}, '‘': {}, '`': {}, 'ʼ': {}, '´': {},
}

var openers = map[rune]rune{
	')': '(', ']': '[', '}': '{', '）': '（', '】': '【', '］': '［',
}

// NormalizeTitle lowercases (unless CaseSensitive), folds homoglyphs and
// diacritics, strips trailing bracketed annotations, drops punctuation, and
// collapses whitespace.
func NormalizeTitle(title string, opts Options) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	title = norm.NFKC.String(title)
	title = mapHomoglyphs(title)
	title = FoldDiacritics(title)
	if !opts.CaseSensitive {
		title = cases.Fold().String(title)
	}
	title = stripTrailingAnnotations(title)
	return collapse(title)
}

// FoldDiacritics removes Latin combining accents ("Pokémon" -> "Pokemon")
// while leaving marks that carry meaning in other scripts.
func FoldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.Predicate(isLatinAccent)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func isLatinAccent(r rune) bool {
	return r >= 0x0300 && r <= 0x036F
}

func mapHomoglyphs(s string) string {
	words := strings.Fields(s)
	changed := false
	for i, word := range words {
		if !hasLatin(word) {
			continue
		}
		mapped := strings.Map(func(r rune) rune {
			if repl, ok := homoglyphs[r]; ok {
				return repl
			}
			return r
		}, word)
		if mapped != word {
			words[i] = mapped
			changed = true
		}
	}
	if !changed {
		return s
	}
	return strings.Join(words, " ")
}

func hasLatin(word string) bool {
	for _, r := range word {
		if unicode.Is(unicode.Latin, r) {
			return true
		}
	}
	return false
}

// stripTrailingAnnotations removes "(Official)", "[Digital]" and similar
// suffixes. A title that is nothing but an annotation is kept.
func stripTrailingAnnotations(s string) string {
	for {
		trimmed := strings.TrimRightFunc(s, unicode.IsSpace)
		if trimmed == "" {
			return s
		}
		rs := []rune(trimmed)
		closer := rs[len(rs)-1]
		opener, ok := openers[closer]
		if !ok {
			return s
		}
		depth := 0
		start := -1
		for i := len(rs) - 1; i >= 0; i-- {
			switch rs[i] {
			case closer:
				depth++
			case opener:
				depth--
			}
			if depth == 0 {
				start = i
				break
			}
		}
		if start <= 0 {
			return s
		}
		rest := strings.TrimRightFunc(string(rs[:start]), unicode.IsSpace)
		if strings.TrimFunc(rest, isSeparator) == "" {
			return s
		}
		s = rest
	}
}

func collapse(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if _, ok := apostrophes[r]; ok {
			continue
		}
		if isSeparator(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
}
