package testsupport

import (
	"context"
	"testing"

	"mangamatch/internal/config"
	"mangamatch/internal/store"
)

// MustOpenStore opens the SQLite store for cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(context.Background(), cfg.DatabasePath())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}
