package testsupport

import (
	"testing"

	"kaitiaki/internal/config"
	"kaitiaki/internal/queue"
)

// MustOpenStore opens the queue store for the given config and closes it
// when the test finishes.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open queue store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
