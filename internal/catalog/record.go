package catalog

import (
	"strconv"
	"strings"
)

// Format is the publication format reported by the catalog.
type Format string

const (
	FormatManga   Format = "MANGA"
	FormatNovel   Format = "NOVEL"
	FormatOneShot Format = "ONE_SHOT"
)

// Provenance records which catalog produced a record.
type Provenance string

const (
	ProvenancePrimary  Provenance = "primary"
	ProvenanceMangaDex Provenance = "mangadex"
	ProvenanceComick   Provenance = "comick"
)

// Title holds the localized titles of a record; any of them may be empty.
type Title struct {
	English string `json:"english,omitempty"`
	Romaji  string `json:"romaji,omitempty"`
	Native  string `json:"native,omitempty"`
}

// ListEntry is the authenticated user's list state for a record.
type ListEntry struct {
	ID       int64   `json:"id"`
	Status   string  `json:"status"`
	Progress int     `json:"progress"`
	Volumes  int     `json:"volumes"`
	Score    float64 `json:"score"`
}

// Origin describes how a fallback source led to a record.
type Origin struct {
	Source      Provenance `json:"source"`
	SourceTitle string     `json:"source_title,omitempty"`
	SourceSlug  string     `json:"source_slug,omitempty"`
}

// Record is a catalog entry. Records are treated as immutable once fetched.
type Record struct {
	ID        int64      `json:"id"`
	Title     Title      `json:"title"`
	Synonyms  []string   `json:"synonyms,omitempty"`
	Format    Format     `json:"format,omitempty"`
	Status    string     `json:"status,omitempty"`
	Chapters  int        `json:"chapters,omitempty"`
	Volumes   int        `json:"volumes,omitempty"`
	IsAdult   bool       `json:"is_adult,omitempty"`
	CoverURL  string     `json:"cover_url,omitempty"`
	SiteURL   string     `json:"site_url,omitempty"`
	ListEntry *ListEntry `json:"list_entry,omitempty"`
	Origin    *Origin    `json:"origin,omitempty"`
}

// Provenance reports the catalog a record came from.
func (r Record) Provenance() Provenance {
	if r.Origin == nil || r.Origin.Source == "" {
		return ProvenancePrimary
	}
	return r.Origin.Source
}

// DisplayTitle picks the first non-empty title in English, Romaji, Native order.
func (r Record) DisplayTitle() string {
	for _, candidate := range []string{r.Title.English, r.Title.Romaji, r.Title.Native} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s
		}
	}
	for _, synonym := range r.Synonyms {
		if s := strings.TrimSpace(synonym); s != "" {
			return s
		}
	}
	return "#" + strconv.FormatInt(r.ID, 10)
}

// TitleVariants returns every non-empty title of the record, primary titles first.
func (r Record) TitleVariants() []string {
	variants := make([]string, 0, 3+len(r.Synonyms))
	for _, candidate := range []string{r.Title.English, r.Title.Romaji, r.Title.Native} {
		if strings.TrimSpace(candidate) != "" {
			variants = append(variants, candidate)
		}
	}
	for _, synonym := range r.Synonyms {
		if strings.TrimSpace(synonym) != "" {
			variants = append(variants, synonym)
		}
	}
	return variants
}

// MergeRecords appends records from extra that are not already present by ID.
func MergeRecords(base []Record, extra ...Record) []Record {
	seen := make(map[int64]struct{}, len(base)+len(extra))
	out := make([]Record, 0, len(base)+len(extra))
	for _, rec := range base {
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		out = append(out, rec)
	}
	for _, rec := range extra {
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		out = append(out, rec)
	}
	return out
}
