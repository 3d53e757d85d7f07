package testsupport

import (
	"context"
	"testing"

	"scenetrack/internal/config"
	"scenetrack/internal/queue"
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

// NewJob enqueues a pending job for videoID using the provided store.
func NewJob(t testing.TB, store *queue.Store, videoID, sourceURL string) *queue.Job {
	t.Helper()

	job, err := store.NewJob(context.Background(), queue.NewJobParams{
		VideoID:     videoID,
		VideoName:   videoID,
		ContentType: "video/mp4",
		SourceURL:   sourceURL,
	})
	if err != nil {
		t.Fatalf("store.NewJob: %v", err)
	}
	return job
}
