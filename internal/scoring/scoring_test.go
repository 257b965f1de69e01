package scoring

import (
	"testing"

	"mangamatch/internal/catalog"
	"mangamatch/internal/textutil"
)

func TestCompareTitlesStrategies(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		strategy Strategy
		minScore float64
		maxScore float64
	}{
		{"exact after normalization", "Attack on Titan", "attack on titan!", StrategyExact, 1, 1},
		{"article only", "The Promised Neverland", "Promised Neverland", StrategyArticleOnly, 0.97, 0.97},
		{"season suffix same stem", "Attack on Titan Season 2", "Attack on Titan", StrategySeason, 0.9, 0.9},
		{"season acronym stem", "AoT Season 2", "Attack on Titan", StrategySeason, 0.85, 0.9},
		{"containment", "One Punch Man", "One Punch Man Digital Colored Comics", StrategyContainment, 0.8, 0.85},
		{"token overlap reordered", "Kingdom Hearts Chain Memories", "Chain Memories Kingdom Hearts", StrategyTokenOverlap, 0.75, 0.9},
		{"short edit distance", "Berzerk", "Berserk", StrategyEditDistance, 0.85, 0.96},
		{"long edit distance", "Fullmetal Alchemist", "Fullmetal Alchemyst", StrategyEditDistance, 0.7, 0.96},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := CompareTitles(tt.a, tt.b)
			if m.Strategy != tt.strategy {
				t.Fatalf("strategy = %s, want %s (score %.3f)", m.Strategy, tt.strategy, m.Score)
			}
			if m.Score < tt.minScore-1e-9 || m.Score > tt.maxScore+1e-9 {
				t.Fatalf("score = %.4f, want within [%.2f, %.2f]", m.Score, tt.minScore, tt.maxScore)
			}
		})
	}
}

func TestCompareTitlesIsSymmetricForExactAndEmpty(t *testing.T) {
	if m := CompareTitles("", "Berserk"); m.Score != 0 || m.Strategy != StrategyNone {
		t.Fatalf("empty title should score zero, got %+v", m)
	}
	if m := CompareTitles("???", "Berserk"); m.Score != 0 {
		t.Fatalf("punctuation-only title should score zero, got %+v", m)
	}
	if a, b := CompareTitles("Vinland Saga", "vinland saga"), CompareTitles("vinland saga", "Vinland Saga"); a != b {
		t.Fatalf("expected symmetric exact match, got %+v and %+v", a, b)
	}
}

func TestWeakMatchKeepsBestHeuristic(t *testing.T) {
	a, b := "The Legend of the Northern Blade", "Legend of the Blue Sea Warrior"
	m := CompareTitles(a, b)
	if m.Strategy != StrategyWeak {
		t.Fatalf("strategy = %s, want %s (score %.3f)", m.Strategy, StrategyWeak, m.Score)
	}

	na, nb := textutil.NormalizeTitle(a, textutil.Options{}), textutil.NormalizeTitle(b, textutil.Options{})
	cosine := textutil.CosineSimilarity(textutil.NewFingerprint(na), textutil.NewFingerprint(nb))
	want := max(tokenOverlap(na, nb), editSimilarity(na, nb), cosine)
	if m.Score != want {
		t.Fatalf("score = %.4f, want best heuristic %.4f", m.Score, want)
	}
	if m.Score < 0.4 {
		t.Fatalf("expected best heuristic of at least 0.4, got %.4f", m.Score)
	}
	if got := Calibrate(m.Score); got < 25 {
		t.Fatalf("Calibrate(%.4f) = %d, want at least 25", m.Score, got)
	}
}

func TestUnrelatedTitlesScoreLow(t *testing.T) {
	rec := catalog.Record{ID: 1, Title: catalog.Title{English: "Vagabond"}}
	if got := Confidence("Berserk", rec); got >= 30 {
		t.Fatalf("expected low confidence for unrelated titles, got %d", got)
	}
}

func TestScoreRecordPrefersBestField(t *testing.T) {
	rec := catalog.Record{
		ID:       16498,
		Title:    catalog.Title{English: "Attack on Titan", Romaji: "Shingeki no Kyojin", Native: "進撃の巨人"},
		Synonyms: []string{"AoT", "SnK"},
	}

	exact := ScoreRecord("Attack on Titan", rec)
	if exact.Score != 1 || exact.Field != catalog.FieldEnglish {
		t.Fatalf("expected exact english match, got %+v", exact)
	}
	if got := Confidence("Attack on Titan", rec); got != 99 {
		t.Fatalf("confidence = %d, want 99", got)
	}

	romaji := ScoreRecord("shingeki no kyojin", rec)
	if romaji.Field != catalog.FieldRomaji || romaji.Score != 1 {
		t.Fatalf("expected romaji match, got %+v", romaji)
	}

	native := ScoreRecord("進撃の巨人", rec)
	if native.Field != catalog.FieldNative {
		t.Fatalf("expected native match, got %+v", native)
	}

	synonym := ScoreRecord("SnK", rec)
	if synonym.Field != catalog.FieldSynonym || synonym.Score != 1 {
		t.Fatalf("expected synonym match, got %+v", synonym)
	}
}

func TestScoreRecordSeasonExample(t *testing.T) {
	rec := catalog.Record{ID: 16498, Title: catalog.Title{English: "Attack on Titan", Romaji: "Shingeki no Kyojin"}}
	got := Confidence("AoT Season 2", rec)
	if got < 80 || got > 90 {
		t.Fatalf("confidence = %d, want within 80-90", got)
	}
}

func TestScoreRecordTieBreakUsesFieldPriority(t *testing.T) {
	rec := catalog.Record{ID: 1, Title: catalog.Title{English: "Monster", Romaji: "Monster"}, Synonyms: []string{"Monster"}}
	if got := ScoreRecord("monster", rec); got.Field != catalog.FieldEnglish {
		t.Fatalf("expected english to win tie, got %s", got.Field)
	}
}

func TestScoreRecordWithoutTitles(t *testing.T) {
	got := ScoreRecord("Berserk", catalog.Record{ID: 9})
	if got.Score != 0 || got.Field != catalog.FieldNone {
		t.Fatalf("expected no match, got %+v", got)
	}
}

func TestCaseSensitiveScorer(t *testing.T) {
	s := Scorer{Normalize: textutil.Options{CaseSensitive: true}}
	if m := s.CompareTitles("BERSERK", "Berserk"); m.Strategy == StrategyExact {
		t.Fatal("case-sensitive scorer should not treat differing case as exact")
	}
	if m := CompareTitles("BERSERK", "Berserk"); m.Strategy != StrategyExact {
		t.Fatalf("default scorer should ignore case, got %s", m.Strategy)
	}
}

func TestCalibrateBands(t *testing.T) {
	tests := []struct {
		score  float64
		lo, hi int
	}{
		{1, 99, 99},
		{0.97, 99, 99},
		{0.95, 90, 96},
		{0.9, 80, 89},
		{0.8, 65, 79},
		{0.7, 45, 64},
		{0.5, 25, 44},
		{0.3, 16, 24},
		{0.1, 1, 15},
		{0, 0, 0},
		{-0.5, 0, 0},
	}
	for _, tt := range tests {
		got := Calibrate(tt.score)
		if got < tt.lo || got > tt.hi {
			t.Errorf("Calibrate(%v) = %d, want within [%d, %d]", tt.score, got, tt.lo, tt.hi)
		}
	}
}

func TestCalibrateMonotonic(t *testing.T) {
	prev := Calibrate(0)
	for i := 1; i <= 1000; i++ {
		got := Calibrate(float64(i) / 1000)
		if got < prev {
			t.Fatalf("Calibrate not monotonic at %.3f: %d < %d", float64(i)/1000, got, prev)
		}
		if got < 0 || got > 100 {
			t.Fatalf("Calibrate(%.3f) = %d out of range", float64(i)/1000, got)
		}
		prev = got
	}
}

func TestRankOrdersCandidates(t *testing.T) {
	weak := catalog.Record{ID: 1, Title: catalog.Title{English: "Titan's Bride"}}
	romaji := catalog.Record{ID: 2, Title: catalog.Title{Romaji: "Attack on Titan"}}
	english := catalog.Record{
		ID:     3,
		Title:  catalog.Title{English: "Attack on Titan"},
		Origin: &catalog.Origin{Source: catalog.ProvenanceMangaDex, SourceTitle: "Shingeki no Kyojin"},
	}

	got := Rank(catalog.Input{Title: "Attack on Titan"}, []catalog.Record{weak, romaji, english})
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	if got[0].Record.ID != 3 || got[1].Record.ID != 2 || got[2].Record.ID != 1 {
		t.Fatalf("unexpected order: %d %d %d", got[0].Record.ID, got[1].Record.ID, got[2].Record.ID)
	}
	if got[0].Provenance != catalog.ProvenanceMangaDex || got[1].Provenance != catalog.ProvenancePrimary {
		t.Fatalf("unexpected provenance: %s %s", got[0].Provenance, got[1].Provenance)
	}
	if got[0].Confidence != 99 || got[0].MatchedField != catalog.FieldEnglish {
		t.Fatalf("unexpected top candidate %+v", got[0])
	}
}

func TestRankUsesAlternativeTitles(t *testing.T) {
	rec := catalog.Record{ID: 7, Title: catalog.Title{Romaji: "Shingeki no Kyojin"}}
	in := catalog.Input{Title: "AoT", AlternativeTitles: []string{"Shingeki no Kyojin"}}
	got := Rank(in, []catalog.Record{rec})
	if got[0].Confidence != 99 {
		t.Fatalf("expected alternative title to match exactly, got %d", got[0].Confidence)
	}
}
