package queue_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"scenetrack/internal/queue"
	"scenetrack/internal/testsupport"
)

func TestNewJobRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job, err := store.NewJob(ctx, queue.NewJobParams{
		VideoID:     "video-input/cats.mp4",
		VideoName:   "cats.mp4",
		ContentType: "video/mp4",
		Size:        1024,
		SourceURL:   "gs://video-input/cats.mp4",
		RequestID:   "req-1",
	})
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	if job.ID == 0 {
		t.Fatal("expected job ID to be assigned")
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %q", job.Status)
	}
	if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps, got %#v", job)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.VideoName != "cats.mp4" || fetched.Size != 1024 || fetched.RequestID != "req-1" {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}
	if fetched.LastHeartbeat != nil {
		t.Fatalf("expected no heartbeat on a new job, got %v", fetched.LastHeartbeat)
	}
}

func TestNewJobRequiresVideoAndSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.NewJob(ctx, queue.NewJobParams{SourceURL: "gs://b/o"}); err == nil {
		t.Fatal("expected error when video id missing")
	}
	if _, err := store.NewJob(ctx, queue.NewJobParams{VideoID: "b/o"}); err == nil {
		t.Fatal("expected error when source url missing")
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job, err := store.GetByID(context.Background(), 4242)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil job, got %#v", job)
	}
}

func TestUpdatePersistsResults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "video-input/dogs.mp4", "gs://video-input/dogs.mp4")
	heartbeat := time.Now().UTC()
	job.Status = queue.StatusCompleted
	job.SceneCount = 7
	job.SkippedCount = 2
	job.TrackURL = "file:///tmp/objects.vtt"
	job.EmojiTrackURL = "file:///tmp/emoji.vtt"
	job.ResultMessage = "file:///tmp/objects.vtt"
	job.LastHeartbeat = &heartbeat
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusCompleted || fetched.SceneCount != 7 || fetched.SkippedCount != 2 {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}
	if fetched.TrackURL != job.TrackURL || fetched.EmojiTrackURL != job.EmojiTrackURL {
		t.Fatalf("track urls not persisted: %#v", fetched)
	}
	if fetched.LastHeartbeat == nil || !fetched.LastHeartbeat.Equal(heartbeat) {
		t.Fatalf("expected heartbeat %v, got %v", heartbeat, fetched.LastHeartbeat)
	}
}

func TestNextPendingClaimsOldestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewJob(t, store, "video-input/a.mp4", "gs://video-input/a.mp4")
	second := testsupport.NewJob(t, store, "video-input/b.mp4", "gs://video-input/b.mp4")

	claimed, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("expected job %d, got %#v", first.ID, claimed)
	}
	if claimed.Status != queue.StatusAnnotating || claimed.LastHeartbeat == nil {
		t.Fatalf("expected claimed job in annotating with heartbeat, got %#v", claimed)
	}

	claimed, err = store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if claimed == nil || claimed.ID != second.ID {
		t.Fatalf("expected job %d, got %#v", second.ID, claimed)
	}

	claimed, err = store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if claimed != nil {
		t.Fatalf("expected empty queue, got %#v", claimed)
	}
}

func TestActiveForVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "video-input/a.mp4", "gs://video-input/a.mp4")

	active, err := store.ActiveForVideo(ctx, "video-input/a.mp4")
	if err != nil {
		t.Fatalf("ActiveForVideo failed: %v", err)
	}
	if active == nil || active.ID != job.ID {
		t.Fatalf("expected active job %d, got %#v", job.ID, active)
	}

	job.Status = queue.StatusCompleted
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	active, err = store.ActiveForVideo(ctx, "video-input/a.mp4")
	if err != nil {
		t.Fatalf("ActiveForVideo failed: %v", err)
	}
	if active != nil {
		t.Fatalf("expected no active job after completion, got %#v", active)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	statuses := []queue.Status{
		queue.StatusAnnotating,
		queue.StatusConsolidating,
		queue.StatusPublishing,
		queue.StatusCompleted,
	}
	var ids []int64
	for i, status := range statuses {
		job := testsupport.NewJob(t, store, fmt.Sprintf("video-input/%d.mp4", i), fmt.Sprintf("gs://video-input/%d.mp4", i))
		job.Status = status
		now := time.Now()
		job.LastHeartbeat = &now
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, job.ID)
	}

	reset, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if reset != 3 {
		t.Fatalf("expected 3 reset jobs, got %d", reset)
	}
	for i, id := range ids {
		job, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		want := queue.StatusPending
		if statuses[i] == queue.StatusCompleted {
			want = queue.StatusCompleted
		}
		if job.Status != want {
			t.Fatalf("job %d: expected %q, got %q", id, want, job.Status)
		}
		if want == queue.StatusPending && job.LastHeartbeat != nil {
			t.Fatalf("job %d: expected cleared heartbeat", id)
		}
	}
}

func TestReclaimStaleOnlyTouchesExpiredHeartbeats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stale := testsupport.NewJob(t, store, "video-input/stale.mp4", "gs://video-input/stale.mp4")
	fresh := testsupport.NewJob(t, store, "video-input/fresh.mp4", "gs://video-input/fresh.mp4")

	old := time.Now().Add(-10 * time.Minute)
	stale.Status = queue.StatusConsolidating
	stale.LastHeartbeat = &old
	if err := store.Update(ctx, stale); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	recent := time.Now()
	fresh.Status = queue.StatusAnnotating
	fresh.LastHeartbeat = &recent
	if err := store.Update(ctx, fresh); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	reclaimed, err := store.ReclaimStale(ctx, time.Now().Add(-2*time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStale failed: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("expected 1 reclaimed job, got %d", reclaimed)
	}

	got, _ := store.GetByID(ctx, stale.ID)
	if got.Status != queue.StatusPending {
		t.Fatalf("expected stale job pending, got %q", got.Status)
	}
	got, _ = store.GetByID(ctx, fresh.ID)
	if got.Status != queue.StatusAnnotating {
		t.Fatalf("expected fresh job untouched, got %q", got.Status)
	}
}

func TestRetryFailedSelectsByID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	var ids []int64
	for i, status := range []queue.Status{queue.StatusFailed, queue.StatusReview, queue.StatusFailed} {
		job := testsupport.NewJob(t, store, fmt.Sprintf("video-input/%d.mp4", i), fmt.Sprintf("gs://video-input/%d.mp4", i))
		job.SetFailed(status, "boom")
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, job.ID)
	}

	retried, err := store.RetryFailed(ctx, ids[0])
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("expected 1 retried job, got %d", retried)
	}
	job, _ := store.GetByID(ctx, ids[0])
	if job.Status != queue.StatusPending || job.ErrorMessage != "" {
		t.Fatalf("expected pending job without error, got %#v", job)
	}

	retried, err = store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if retried != 2 {
		t.Fatalf("expected remaining 2 jobs retried, got %d", retried)
	}
}

func TestListStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	statuses := []queue.Status{
		queue.StatusPending,
		queue.StatusPending,
		queue.StatusAnnotating,
		queue.StatusFailed,
		queue.StatusReview,
		queue.StatusCompleted,
	}
	for i, status := range statuses {
		job := testsupport.NewJob(t, store, fmt.Sprintf("video-input/%d.mp4", i), fmt.Sprintf("gs://video-input/%d.mp4", i))
		job.Status = status
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != len(statuses) {
		t.Fatalf("expected %d jobs, got %d", len(statuses), len(all))
	}
	pending, err := store.List(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending jobs, got %d", len(pending))
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	want := queue.HealthSummary{Total: 6, Pending: 2, Processing: 1, Failed: 1, Review: 1, Completed: 1}
	if health != want {
		t.Fatalf("unexpected health: got %#v want %#v", health, want)
	}

	cleared, err := store.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted failed: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected 1 cleared job, got %d", cleared)
	}
	cleared, err = store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if cleared != 5 {
		t.Fatalf("expected 5 cleared jobs, got %d", cleared)
	}
}

func TestCheckHealthReportsSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewJob(t, store, "video-input/a.mp4", "gs://video-input/a.mp4")

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %#v", health)
	}
	if health.SchemaVersion != 1 || len(health.MissingColumns) != 0 || health.TotalJobs != 1 {
		t.Fatalf("unexpected health: %#v", health)
	}
}

func TestReopenKeepsJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	testsupport.NewJob(t, store, "video-input/a.mp4", "gs://video-input/a.mp4")
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	jobs, err := reopened.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected job to survive reopen, got %d", len(jobs))
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Failed "); !ok || status != queue.StatusFailed {
		t.Fatalf("expected failed, got %q ok=%v", status, ok)
	}
	if _, ok := queue.ParseStatus("ripping"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if !queue.IsProcessingStatus(queue.StatusConsolidating) || queue.IsProcessingStatus(queue.StatusPending) {
		t.Fatal("unexpected processing classification")
	}
	if !errors.Is(fmt.Errorf("wrap: %w", queue.ErrSchemaMismatch), queue.ErrSchemaMismatch) {
		t.Fatal("schema mismatch sentinel should unwrap")
	}
}
