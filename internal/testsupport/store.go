package testsupport

import (
	"testing"

	"slidecast/internal/config"
	"slidecast/internal/session"
)

// MustOpenStore opens a session.SQLiteStore for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *session.SQLiteStore {
	t.Helper()

	store, err := session.Open(cfg)
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
