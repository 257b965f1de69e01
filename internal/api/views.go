package api

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"mangamatch/internal/catalog"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ResultView is the flattened, transport-friendly form of a match result used
// by CLI tables and JSON output.
type ResultView struct {
	Key            string `json:"key"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	Candidates     int    `json:"candidates"`
	Confidence     int    `json:"confidence"`
	CatalogID      int64  `json:"catalogId,omitempty"`
	CatalogTitle   string `json:"catalogTitle,omitempty"`
	Provenance     string `json:"provenance,omitempty"`
	SelectedID     int64  `json:"selectedId,omitempty"`
	SelectedTitle  string `json:"selectedTitle,omitempty"`
	MatchedAt      string `json:"matchedAt,omitempty"`
	InputCatalogID int64  `json:"inputCatalogId,omitempty"`
}

// FromMatchResult flattens r around its top candidate.
func FromMatchResult(r catalog.MatchResult) ResultView {
	view := ResultView{
		Key:            r.Input.Key(),
		Title:          r.Input.Title,
		Status:         string(r.Status),
		Candidates:     len(r.Candidates),
		InputCatalogID: r.Input.CatalogID,
	}
	if view.Status == "" {
		view.Status = string(catalog.StatusPending)
	}
	if top, ok := r.TopCandidate(); ok {
		view.Confidence = top.Confidence
		view.CatalogID = top.Record.ID
		view.CatalogTitle = top.Record.DisplayTitle()
		view.Provenance = string(top.Provenance)
	}
	if r.Selected != nil {
		view.SelectedID = r.Selected.ID
		view.SelectedTitle = r.Selected.DisplayTitle()
	}
	if !r.MatchedAt.IsZero() {
		view.MatchedAt = r.MatchedAt.UTC().Format(dateTimeFormat)
	}
	return view
}

// FromMatchResults converts a result slice, keeping order.
func FromMatchResults(results []catalog.MatchResult) []ResultView {
	views := make([]ResultView, 0, len(results))
	for _, r := range results {
		views = append(views, FromMatchResult(r))
	}
	return views
}

// CandidateView is a single ranked candidate for search output.
type CandidateView struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Romaji       string `json:"romaji,omitempty"`
	Format       string `json:"format,omitempty"`
	Status       string `json:"status,omitempty"`
	Chapters     int    `json:"chapters,omitempty"`
	Confidence   int    `json:"confidence"`
	MatchedField string `json:"matchedField"`
	Provenance   string `json:"provenance"`
	OnList       bool   `json:"onList"`
	SiteURL      string `json:"siteUrl,omitempty"`
}

// FromCandidates converts ranked candidates, keeping rank order.
func FromCandidates(candidates []catalog.Candidate) []CandidateView {
	views := make([]CandidateView, 0, len(candidates))
	for _, c := range candidates {
		views = append(views, CandidateView{
			ID:           c.Record.ID,
			Title:        c.Record.DisplayTitle(),
			Romaji:       c.Record.Title.Romaji,
			Format:       string(c.Record.Format),
			Status:       c.Record.Status,
			Chapters:     c.Record.Chapters,
			Confidence:   c.Confidence,
			MatchedField: string(c.MatchedField),
			Provenance:   string(c.Provenance),
			OnList:       c.Record.ListEntry != nil,
			SiteURL:      c.Record.SiteURL,
		})
	}
	return views
}

// StatusSummary renders status counts in a stable order, e.g.
// "matched=3 pending=1".
func StatusSummary(counts map[catalog.ResultStatus]int) string {
	if len(counts) == 0 {
		return "none"
	}
	order := []catalog.ResultStatus{catalog.StatusMatched, catalog.StatusManual, catalog.StatusSkipped, catalog.StatusPending}
	parts := make([]string, 0, len(counts))
	for _, status := range order {
		if n, ok := counts[status]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", status, n))
		}
	}
	var extra []string
	for status, n := range counts {
		if !slices.Contains(order, status) {
			extra = append(extra, fmt.Sprintf("%s=%d", status, n))
		}
	}
	sort.Strings(extra)
	return strings.Join(append(parts, extra...), " ")
}

var knownFormats = map[string]catalog.Format{
	"manga":    catalog.FormatManga,
	"novel":    catalog.FormatNovel,
	"one_shot": catalog.FormatOneShot,
	"oneshot":  catalog.FormatOneShot,
}

// ParseFilter builds a search filter from loosely formatted user values.
// Comma-separated entries are split; formats must be known.
func ParseFilter(genres, tags, formats []string) (catalog.Filter, error) {
	filter := catalog.Filter{
		Genres: splitValues(genres),
		Tags:   splitValues(tags),
	}
	for _, raw := range splitValues(formats) {
		format, ok := knownFormats[strings.ReplaceAll(strings.ToLower(raw), "-", "_")]
		if !ok {
			return catalog.Filter{}, fmt.Errorf("unknown format %q (want manga, novel, or one_shot)", raw)
		}
		if !slices.Contains(filter.Formats, format) {
			filter.Formats = append(filter.Formats, format)
		}
	}
	return filter, nil
}

func splitValues(values []string) []string {
	var out []string
	for _, value := range values {
		for part := range strings.SplitSeq(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
