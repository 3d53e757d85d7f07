package main

import (
	"context"
	"testing"

	"scenetrack/internal/queue"
	"scenetrack/internal/testsupport"
)

func TestJobsAddListRetryClear(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteBucketFile(t, env.cfg.Storage.RootDir, env.cfg.Storage.InputBucket, "cats.mp4", 64)

	out, _, err := env.run(t, "jobs", "add", "gs://video-input/cats.mp4")
	if err != nil {
		t.Fatalf("jobs add: %v", err)
	}
	requireContains(t, out, "Queued job 1")

	out, _, err = env.run(t, "jobs", "add", "gs://video-input/cats.mp4")
	if err != nil {
		t.Fatalf("second jobs add: %v", err)
	}
	requireContains(t, out, "already queued as job 1")

	if _, _, err := env.run(t, "jobs", "add", "gs://video-input/missing.mp4"); err == nil {
		t.Fatal("expected an error for a missing object without --id")
	}

	out, _, err = env.run(t, "jobs", "list")
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, out, "cats.mp4")
	requireContains(t, out, "pending")

	out, _, err = env.run(t, "jobs", "list", "--status", "failed")
	if err != nil {
		t.Fatalf("jobs list --status: %v", err)
	}
	requireContains(t, out, "No jobs")
	if _, _, err := env.run(t, "jobs", "list", "--status", "ripping"); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}

	store := testsupport.MustOpenStore(t, env.cfg)
	job, err := store.GetByID(context.Background(), 1)
	if err != nil || job == nil {
		t.Fatalf("GetByID: %v %v", job, err)
	}
	job.SetFailed(queue.StatusFailed, "Annotation timed out")
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	out, _, err = env.run(t, "jobs", "show", "1")
	if err != nil {
		t.Fatalf("jobs show: %v", err)
	}
	requireContains(t, out, "Annotation timed out")

	out, _, err = env.run(t, "jobs", "retry", "1")
	if err != nil {
		t.Fatalf("jobs retry: %v", err)
	}
	requireContains(t, out, "Requeued 1 job(s)")

	job, err = store.GetByID(context.Background(), 1)
	if err != nil || job.Status != queue.StatusPending {
		t.Fatalf("expected pending after retry, got %#v (%v)", job, err)
	}

	if _, _, err := env.run(t, "jobs", "clear"); err == nil {
		t.Fatal("expected clear without a scope flag to fail")
	}
	out, _, err = env.run(t, "jobs", "clear", "--all")
	if err != nil {
		t.Fatalf("jobs clear: %v", err)
	}
	requireContains(t, out, "Removed 1 job(s)")
}

func TestJobsShowRejectsBadID(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := env.run(t, "jobs", "show", "abc"); err == nil {
		t.Fatal("expected invalid id error")
	}
	if _, _, err := env.run(t, "jobs", "show", "42"); err == nil {
		t.Fatal("expected not found error")
	}
}
