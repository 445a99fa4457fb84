package testsupport

import (
	"context"
	"testing"

	"assetnode/internal/config"
	"assetnode/internal/ledger"
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

// SeedChecks writes each asset name at height and fails the test on error.
func SeedChecks(t testing.TB, store *ledger.Store, height int64, assets ...string) {
	t.Helper()

	for _, name := range assets {
		if err := store.Write(context.Background(), name, height); err != nil {
			t.Fatalf("store.Write(%s, %d): %v", name, height, err)
		}
	}
}
