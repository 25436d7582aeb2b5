package testsupport

import (
	"context"
	"testing"

	"ytscribe/internal/config"
	"ytscribe/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Enqueue adds a job for tests using the provided store.
func Enqueue(t testing.TB, store *queue.Store, videoID, sourceURL string) *queue.Job {
	t.Helper()

	job, err := store.Enqueue(context.Background(), videoID, sourceURL)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return job
}
