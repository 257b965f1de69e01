package cache

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"unicode/utf8"

	"mangamatch/internal/catalog"
	"mangamatch/internal/textutil"
)

const (
	// MaxKeyLength bounds every cache key in bytes.
	MaxKeyLength = 120

	hashSuffixLength = 9 // "#" plus eight hex digits
	searchPrefix     = "search:"
	titlePrefix      = "title:"
)

// SearchKey identifies a raw search response by normalized text, pagination
// and filter.
func SearchKey(q catalog.SearchQuery) string {
	return capKey(searchPrefix + normalize(q.Text) + "|" + q.PaginationKey())
}

// SearchPrefix matches every SearchKey produced for title, whatever its
// pagination or filter.
func SearchPrefix(title string) string {
	prefix := searchPrefix + normalize(title) + "|"
	if len(prefix) > MaxKeyLength-hashSuffixLength {
		prefix = cutAtRune(prefix, MaxKeyLength-hashSuffixLength)
	}
	return prefix
}

// TitleKey identifies the records resolved for a title.
func TitleKey(title string) string {
	return capKey(titlePrefix + normalize(title))
}

// SearchKeyParts is what ParseSearchKey recovers from a key.
type SearchKeyParts struct {
	Text     string
	Page     int
	Filtered bool
}

// ParseSearchKey recovers the normalized text and page number from a
// SearchKey. Truncated keys cannot be parsed.
func ParseSearchKey(key string) (SearchKeyParts, bool) {
	rest, found := strings.CutPrefix(key, searchPrefix)
	if !found || strings.Contains(rest, "#") {
		return SearchKeyParts{}, false
	}
	text, params, found := strings.Cut(rest, "|")
	if !found || text == "" {
		return SearchKeyParts{}, false
	}
	fields := strings.Split(params, "|")
	value, found := strings.CutPrefix(fields[0], "p=")
	if !found {
		return SearchKeyParts{}, false
	}
	page, err := strconv.Atoi(value)
	if err != nil {
		return SearchKeyParts{}, false
	}
	return SearchKeyParts{Text: text, Page: page, Filtered: len(fields) > 2}, true
}

func normalize(title string) string {
	return textutil.NormalizeTitle(title, textutil.Options{})
}

func capKey(key string) string {
	if len(key) <= MaxKeyLength {
		return key
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return cutAtRune(key, MaxKeyLength-hashSuffixLength) + fmt.Sprintf("#%08x", h.Sum32())
}

func cutAtRune(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// IndexRecords stores each record under every one of its title variants,
// merging with records already cached there.
func IndexRecords(records *Cache[[]catalog.Record], recs []catalog.Record) {
	for _, rec := range recs {
		seen := make(map[string]struct{})
		for _, variant := range rec.TitleVariants() {
			key := TitleKey(variant)
			if key == titlePrefix {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			records.Update(key, func(existing []catalog.Record, _ bool) []catalog.Record {
				return catalog.MergeRecords(existing, rec)
			})
		}
	}
}
