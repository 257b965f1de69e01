package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, found, err := s.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("Get(missing) = found %v, err %v", found, err)
	}
	if err := s.Set(ctx, "search_cache", `{"a":1}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "record_cache", `{}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, found, err := s.Get(ctx, "search_cache")
	if err != nil || !found || value != `{"a":1}` {
		t.Fatalf("Get = %q, %v, %v", value, found, err)
	}
	if err := s.Remove(ctx, "search_cache"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, found, _ := s.Get(ctx, "search_cache"); found {
		t.Fatal("expected key removed")
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, found, _ := s.Get(ctx, "record_cache"); found {
		t.Fatal("expected store cleared")
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory()
	exerciseStore(t, m)
	if m.Writes() != 4 {
		t.Fatalf("writes = %d, want 4", m.Writes())
	}
}

func TestBoltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.bolt")
	b, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	exerciseStore(t, b)

	if err := b.Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	reopened, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if v, found, err := reopened.Get(context.Background(), "k"); err != nil || !found || v != "v" {
		t.Fatalf("expected value to survive reopen, got %q %v %v", v, found, err)
	}
}

func TestBoltStoreHonoursCancelledContext(t *testing.T) {
	b, err := OpenBolt(filepath.Join(t.TempDir(), "cache.bolt"))
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Set(ctx, "k", "v"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("MANGAMATCH_TEST_REDIS_URL")
	if url == "" {
		t.Skip("MANGAMATCH_TEST_REDIS_URL not set")
	}
	r, err := DialRedis(context.Background(), url, "mangamatch-test:", nil)
	if err != nil {
		t.Fatalf("DialRedis: %v", err)
	}
	defer r.Close()
	exerciseStore(t, r)
}
