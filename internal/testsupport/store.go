package testsupport

import (
	"context"
	"testing"

	"github.com/phrazzld/super-wire/internal/config"
	"github.com/phrazzld/super-wire/internal/ledger"
)

// MustOpenLedger opens a ledger.Store for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// BeginRun inserts a pending run for tests.
func BeginRun(t testing.TB, store *ledger.Store, runID string) {
	t.Helper()

	if err := store.Begin(context.Background(), runID, "FETCH_HEADLINES"); err != nil {
		t.Fatalf("store.Begin: %v", err)
	}
}
