package catalog

import (
	"sort"
	"strconv"
	"strings"
)

// Filter narrows a catalog search.
type Filter struct {
	Genres  []string `json:"genres,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Formats []Format `json:"formats,omitempty"`
}

// Empty reports whether the filter constrains nothing.
func (f Filter) Empty() bool {
	return len(f.Genres) == 0 && len(f.Tags) == 0 && len(f.Formats) == 0
}

// Fingerprint returns a stable, order-insensitive representation for cache keys.
func (f Filter) Fingerprint() string {
	if f.Empty() {
		return ""
	}
	formats := make([]string, 0, len(f.Formats))
	for _, format := range f.Formats {
		formats = append(formats, string(format))
	}
	parts := []string{
		"g=" + joinSorted(f.Genres),
		"t=" + joinSorted(f.Tags),
		"f=" + joinSorted(formats),
	}
	return strings.Join(parts, ";")
}

func joinSorted(values []string) string {
	cp := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			cp = append(cp, v)
		}
	}
	sort.Strings(cp)
	return strings.Join(cp, ",")
}

// SearchQuery is a single catalog search request.
type SearchQuery struct {
	Text    string `json:"text"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
	Filter  Filter `json:"filter"`
}

// WithDefaults fills in pagination left unset by the caller.
func (q SearchQuery) WithDefaults(perPage int) SearchQuery {
	q.Text = strings.TrimSpace(q.Text)
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = perPage
	}
	return q
}

// PaginationKey returns the pagination and filter suffix used in cache keys.
func (q SearchQuery) PaginationKey() string {
	var b strings.Builder
	b.WriteString("p=")
	b.WriteString(strconv.Itoa(q.Page))
	b.WriteString("|n=")
	b.WriteString(strconv.Itoa(q.PerPage))
	if fp := q.Filter.Fingerprint(); fp != "" {
		b.WriteString("|")
		b.WriteString(fp)
	}
	return b.String()
}

// PageInfo mirrors the catalog's pagination block.
type PageInfo struct {
	Total       int  `json:"total"`
	CurrentPage int  `json:"current_page"`
	LastPage    int  `json:"last_page"`
	PerPage     int  `json:"per_page"`
	HasNextPage bool `json:"has_next_page"`
}

// Page is one raw search response.
type Page struct {
	Records  []Record `json:"records"`
	PageInfo PageInfo `json:"page_info"`
}
