package catalog

import (
	"strconv"
	"strings"
	"time"

	"mangamatch/internal/textutil"
)

// MatchedField names the record title that produced a candidate's best score.
type MatchedField string

const (
	FieldEnglish MatchedField = "english"
	FieldRomaji  MatchedField = "romaji"
	FieldNative  MatchedField = "native"
	FieldSynonym MatchedField = "synonym"
	FieldNone    MatchedField = "none"
)

// Priority orders fields for tie-breaks; lower wins.
func (f MatchedField) Priority() int {
	switch f {
	case FieldEnglish:
		return 0
	case FieldRomaji:
		return 1
	case FieldNative:
		return 2
	case FieldSynonym:
		return 3
	default:
		return 4
	}
}

// Candidate is a scored record offered for a tracker entry.
type Candidate struct {
	Record       Record       `json:"record"`
	Confidence   int          `json:"confidence"`
	MatchedField MatchedField `json:"matched_field"`
	Provenance   Provenance   `json:"provenance"`
}

// Input is one title-bearing row from a tracker export.
type Input struct {
	Title             string    `json:"title"`
	AlternativeTitles []string  `json:"alternative_titles,omitempty"`
	CatalogID         int64     `json:"catalog_id,omitempty"`
	Status            string    `json:"status,omitempty"`
	ChaptersRead      float64   `json:"chapters_read,omitempty"`
	VolumesRead       int       `json:"volumes_read,omitempty"`
	Score             float64   `json:"score,omitempty"`
	URL               string    `json:"url,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	LastReadAt        time.Time `json:"last_read_at,omitempty"`
}

// Key identifies an input across reruns. Titles are compared normalized;
// inputs without a usable title fall back to their catalog id.
func (in Input) Key() string {
	if key := textutil.NormalizeTitle(in.Title, textutil.Options{}); key != "" {
		return key
	}
	if in.CatalogID > 0 {
		return "id:" + strconv.FormatInt(in.CatalogID, 10)
	}
	return strings.TrimSpace(in.Title)
}

// ResultStatus is the review state of a match result.
type ResultStatus string

const (
	StatusPending ResultStatus = "pending"
	StatusMatched ResultStatus = "matched"
	StatusManual  ResultStatus = "manual"
	StatusSkipped ResultStatus = "skipped"
)

// Decided reports whether the status reflects a decision a rerun must keep.
func (s ResultStatus) Decided() bool {
	return s != "" && s != StatusPending
}

// ParseStatus validates a status string.
func ParseStatus(value string) (ResultStatus, bool) {
	switch ResultStatus(strings.ToLower(strings.TrimSpace(value))) {
	case StatusPending:
		return StatusPending, true
	case StatusMatched:
		return StatusMatched, true
	case StatusManual:
		return StatusManual, true
	case StatusSkipped:
		return StatusSkipped, true
	default:
		return "", false
	}
}

// MatchResult is the outcome for a single tracker entry.
type MatchResult struct {
	Input      Input        `json:"input"`
	Candidates []Candidate  `json:"candidates"`
	Status     ResultStatus `json:"status"`
	Selected   *Record      `json:"selected,omitempty"`
	MatchedAt  time.Time    `json:"matched_at"`
}

// TopCandidate returns the highest-confidence candidate, if any.
func (r MatchResult) TopCandidate() (Candidate, bool) {
	if len(r.Candidates) == 0 {
		return Candidate{}, false
	}
	return r.Candidates[0], true
}

// PendingResult is the placeholder for an input that was never resolved.
func PendingResult(in Input) MatchResult {
	return MatchResult{Input: in, Candidates: []Candidate{}, Status: StatusPending}
}
