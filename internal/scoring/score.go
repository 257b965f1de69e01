package scoring

import (
	"math"
	"sort"
	"strings"

	"mangamatch/internal/catalog"
	"mangamatch/internal/textutil"
)

// FieldScore is the best comparison between a query and one record.
type FieldScore struct {
	Score    float64
	Strategy Strategy
	Field    catalog.MatchedField
	Title    string
}

// ScoreRecord compares query against every title of rec and keeps the best.
// Ties go to the higher-priority field (english, romaji, native, synonym).
func (s Scorer) ScoreRecord(query string, rec catalog.Record) FieldScore {
	nq := textutil.NormalizeTitle(query, s.Normalize)
	best := FieldScore{Field: catalog.FieldNone}
	if nq == "" {
		return best
	}
	consider := func(field catalog.MatchedField, title string) {
		if strings.TrimSpace(title) == "" {
			return
		}
		m := compareNormalized(nq, textutil.NormalizeTitle(title, s.Normalize))
		if m.Score > best.Score {
			best = FieldScore{Score: m.Score, Strategy: m.Strategy, Field: field, Title: title}
		}
	}
	consider(catalog.FieldEnglish, rec.Title.English)
	consider(catalog.FieldRomaji, rec.Title.Romaji)
	consider(catalog.FieldNative, rec.Title.Native)
	for _, synonym := range rec.Synonyms {
		consider(catalog.FieldSynonym, synonym)
	}
	return best
}

// ScoreRecord uses the default case-insensitive scorer.
func ScoreRecord(query string, rec catalog.Record) FieldScore {
	return Scorer{}.ScoreRecord(query, rec)
}

// Confidence is the calibrated 0-100 confidence that rec is what query names.
func (s Scorer) Confidence(query string, rec catalog.Record) int {
	return Calibrate(s.ScoreRecord(query, rec).Score)
}

// Confidence uses the default case-insensitive scorer.
func Confidence(query string, rec catalog.Record) int {
	return Scorer{}.Confidence(query, rec)
}

type band struct {
	floor  float64
	ceil   float64
	lo, hi int
}

var bands = []band{
	{floor: 0.94, ceil: 0.97, lo: 90, hi: 96},
	{floor: 0.85, ceil: 0.94, lo: 80, hi: 89},
	{floor: 0.75, ceil: 0.85, lo: 65, hi: 79},
	{floor: 0.60, ceil: 0.75, lo: 45, hi: 64},
	{floor: 0.40, ceil: 0.60, lo: 25, hi: 44},
	{floor: 0.20, ceil: 0.40, lo: 16, hi: 24},
	{floor: 0, ceil: 0.20, lo: 1, hi: 15},
}

// Calibrate maps a 0..1 similarity score onto the confidence bands. Scores of
// 0.97 and above read as 99; a zero score is 0.
func Calibrate(score float64) int {
	if math.IsNaN(score) || score <= 0 {
		return 0
	}
	if score >= 0.97 {
		return 99
	}
	for _, b := range bands {
		if score < b.floor {
			continue
		}
		span := float64(b.hi - b.lo)
		value := b.lo + int(math.Floor((score-b.floor)/(b.ceil-b.floor)*span))
		return min(max(value, b.lo), b.hi)
	}
	return 0
}

// Rank scores records against the input's title (and alternative titles),
// returning candidates by confidence, then field priority, then input order.
func (s Scorer) Rank(in catalog.Input, records []catalog.Record) []catalog.Candidate {
	queries := make([]string, 0, 1+len(in.AlternativeTitles))
	queries = append(queries, in.Title)
	queries = append(queries, in.AlternativeTitles...)

	type ranked struct {
		candidate catalog.Candidate
		order     int
	}
	scored := make([]ranked, 0, len(records))
	for i, rec := range records {
		best := FieldScore{Field: catalog.FieldNone}
		for _, q := range queries {
			if fs := s.ScoreRecord(q, rec); fs.Score > best.Score {
				best = fs
			}
		}
		scored = append(scored, ranked{
			candidate: catalog.Candidate{
				Record:       rec,
				Confidence:   Calibrate(best.Score),
				MatchedField: best.Field,
				Provenance:   rec.Provenance(),
			},
			order: i,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i].candidate, scored[j].candidate
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if pa, pb := a.MatchedField.Priority(), b.MatchedField.Priority(); pa != pb {
			return pa < pb
		}
		return scored[i].order < scored[j].order
	})
	out := make([]catalog.Candidate, len(scored))
	for i, r := range scored {
		out[i] = r.candidate
	}
	return out
}

// Rank uses the default case-insensitive scorer.
func Rank(in catalog.Input, records []catalog.Record) []catalog.Candidate {
	return Scorer{}.Rank(in, records)
}
