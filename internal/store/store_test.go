package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"mangamatch/internal/catalog"
	"mangamatch/internal/store"
	"mangamatch/internal/testsupport"
)

func TestOpenAppliesMigrationsIdempotently(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	first, err := store.Open(ctx, cfg.DatabasePath())
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := first.KV().Set(ctx, "search_cache", `{"a":1}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := store.Open(ctx, cfg.DatabasePath())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	value, ok, err := second.KV().Get(ctx, "search_cache")
	if err != nil || !ok {
		t.Fatalf("Get after reopen: ok=%v err=%v", ok, err)
	}
	if value != `{"a":1}` {
		t.Fatalf("unexpected value %q", value)
	}
}

func TestKVOperations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	kv := s.KV()
	ctx := context.Background()

	if _, ok, err := kv.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := kv.Set(ctx, "a", "1"); err != nil {
		t.Fatal(err)
	}
	if err := kv.Set(ctx, "a", "2"); err != nil {
		t.Fatal(err)
	}
	if v, _, _ := kv.Get(ctx, "a"); v != "2" {
		t.Fatalf("expected overwrite, got %q", v)
	}
	if err := kv.Set(ctx, "b", "3"); err != nil {
		t.Fatal(err)
	}
	if err := kv.Remove(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := kv.Get(ctx, "a"); ok {
		t.Fatal("expected a removed")
	}
	if err := kv.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := kv.Get(ctx, "b"); ok {
		t.Fatal("expected b cleared")
	}
}

func sampleResults() []catalog.MatchResult {
	rec := catalog.Record{ID: 16498, Title: catalog.Title{English: "Attack on Titan", Romaji: "Shingeki no Kyojin"}}
	return []catalog.MatchResult{
		{
			Input:      catalog.Input{Title: "Attack on Titan"},
			Candidates: []catalog.Candidate{{Record: rec, Confidence: 99, MatchedField: catalog.FieldEnglish, Provenance: catalog.ProvenancePrimary}},
			Status:     catalog.StatusPending,
		},
		catalog.PendingResult(catalog.Input{Title: "Unknown Work"}),
	}
}

func TestSaveAndLoadResultsPreservesOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := s.SaveResults(ctx, sampleResults()); err != nil {
		t.Fatalf("SaveResults: %v", err)
	}
	loaded, err := s.LoadResults(ctx)
	if err != nil {
		t.Fatalf("LoadResults: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 results, got %d", len(loaded))
	}
	if loaded[0].Input.Title != "Attack on Titan" || loaded[1].Input.Title != "Unknown Work" {
		t.Fatalf("unexpected order: %q, %q", loaded[0].Input.Title, loaded[1].Input.Title)
	}
	if got := loaded[0].Candidates[0].Record.ID; got != 16498 {
		t.Fatalf("candidate lost in round trip: %d", got)
	}

	// A second save replaces rather than appends.
	if err := s.SaveResults(ctx, sampleResults()[:1]); err != nil {
		t.Fatal(err)
	}
	loaded, _ = s.LoadResults(ctx)
	if len(loaded) != 1 {
		t.Fatalf("expected replace semantics, got %d results", len(loaded))
	}
}

func TestSetDecision(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	if err := s.SaveResults(ctx, sampleResults()); err != nil {
		t.Fatal(err)
	}

	key := catalog.Input{Title: "Attack on Titan"}.Key()
	updated, err := s.SetDecision(ctx, key, catalog.StatusMatched, 16498)
	if err != nil {
		t.Fatalf("SetDecision: %v", err)
	}
	if updated.Selected == nil || updated.Selected.ID != 16498 {
		t.Fatalf("expected selected record, got %#v", updated.Selected)
	}
	if updated.MatchedAt.IsZero() || time.Since(updated.MatchedAt) > time.Minute {
		t.Fatalf("unexpected matched_at %v", updated.MatchedAt)
	}

	if _, err := s.SetDecision(ctx, key, catalog.StatusMatched, 1); err == nil {
		t.Fatal("expected error for non-candidate id")
	}
	if _, err := s.SetDecision(ctx, "nope", catalog.StatusSkipped, 0); !errors.Is(err, store.ErrResultNotFound) {
		t.Fatalf("expected ErrResultNotFound, got %v", err)
	}

	counts, err := s.CountByStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[catalog.StatusMatched] != 1 || counts[catalog.StatusPending] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}

	if err := s.ClearResults(ctx); err != nil {
		t.Fatal(err)
	}
	loaded, _ := s.LoadResults(ctx)
	if len(loaded) != 0 {
		t.Fatalf("expected no results after clear, got %d", len(loaded))
	}
}

func TestRunLockExcludesSecondHolder(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	first, err := store.AcquireRunLock(cfg.LockPath())
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := store.AcquireRunLock(cfg.LockPath()); !errors.Is(err, store.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	again, err := store.AcquireRunLock(cfg.LockPath())
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	_ = again.Release()
}
