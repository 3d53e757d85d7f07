package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"scenetrack/internal/api"
	"scenetrack/internal/queue"
	"scenetrack/internal/stage"
	"scenetrack/internal/workflow"
)

type readerStub struct {
	jobs []*queue.Job
}

func (s *readerStub) List(context.Context, ...queue.Status) ([]*queue.Job, error) {
	return s.jobs, nil
}

func (s *readerStub) Stats(context.Context) (map[queue.Status]int, error) {
	return map[queue.Status]int{queue.StatusPending: len(s.jobs)}, nil
}

func (s *readerStub) GetByID(_ context.Context, id int64) (*queue.Job, error) {
	for _, job := range s.jobs {
		if job.ID == id {
			return job, nil
		}
	}
	return nil, nil
}

func TestFromJob(t *testing.T) {
	beat := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	job := &queue.Job{
		ID:            7,
		VideoID:       "abc",
		SourceURL:     "gs://video-input/cats.mp4",
		Status:        queue.StatusReview,
		ResultMessage: "Could not detect anything in abc",
		CreatedAt:     beat,
		LastHeartbeat: &beat,
	}
	dto := api.FromJob(job)
	if !dto.NeedsReview || dto.Stage != "review" || dto.Message != job.ResultMessage {
		t.Fatalf("unexpected dto: %#v", dto)
	}
	if dto.CreatedAt != "2024-03-01T12:00:00.000Z" || dto.LastHeartbeat == "" || dto.UpdatedAt != "" {
		t.Fatalf("unexpected timestamps: %#v", dto)
	}
	if api.FromJob(nil).ID != 0 {
		t.Fatal("expected zero dto for nil job")
	}
}

func TestFromStatusSummary(t *testing.T) {
	summary := workflow.StatusSummary{
		Running:    true,
		QueueStats: map[queue.Status]int{queue.StatusCompleted: 2},
		LastJob:    &queue.Job{ID: 3, Status: queue.StatusCompleted},
		Health:     stage.Unhealthy("analysis", "annotation service unreachable"),
	}
	status := api.FromStatusSummary(summary)
	if status.QueueStats["completed"] != 2 || status.QueueStats["pending"] != 0 {
		t.Fatalf("unexpected stats: %#v", status.QueueStats)
	}
	if len(status.QueueStats) != len(queue.AllStatuses()) {
		t.Fatalf("expected every status to be reported, got %d", len(status.QueueStats))
	}
	if status.LastJob == nil || status.LastJob.Stage != "done" || status.Health.Ready {
		t.Fatalf("unexpected workflow status: %#v", status)
	}
}

func TestJobService(t *testing.T) {
	svc := api.NewJobService(&readerStub{jobs: []*queue.Job{{ID: 1, VideoID: "abc", Status: queue.StatusPending}}})
	ctx := context.Background()

	jobs, err := svc.List(ctx)
	if err != nil || len(jobs) != 1 || jobs[0].Stage != "queued" {
		t.Fatalf("List = %#v, %v", jobs, err)
	}
	job, err := svc.Describe(ctx, 1)
	if err != nil || job == nil || job.VideoID != "abc" {
		t.Fatalf("Describe = %#v, %v", job, err)
	}
	missing, err := svc.Describe(ctx, 99)
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing job, got %#v, %v", missing, err)
	}
	if api.NewJobService(nil) != nil {
		t.Fatal("expected nil service for nil reader")
	}
}

func TestClientSendsTokenAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "unauthorized"})
			return
		}
		switch r.URL.Path {
		case "/api/status":
			_ = json.NewEncoder(w).Encode(api.DaemonStatus{Running: true, PID: 42})
		case "/api/jobs":
			if got := r.URL.Query()["status"]; len(got) != 1 || got[0] != "failed" {
				t.Errorf("unexpected status filter %v", got)
			}
			_ = json.NewEncoder(w).Encode(api.JobListResponse{Jobs: []api.Job{{ID: 5}}})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "job not found"})
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	client := api.NewClient(srv.URL, "secret")
	status, err := client.Status(ctx)
	if err != nil || !status.Running || status.PID != 42 {
		t.Fatalf("Status = %#v, %v", status, err)
	}
	jobs, err := client.Jobs(ctx, "failed")
	if err != nil || len(jobs) != 1 || jobs[0].ID != 5 {
		t.Fatalf("Jobs = %#v, %v", jobs, err)
	}
	_, err = client.Job(ctx, 9)
	var statusErr *api.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound || statusErr.Message != "job not found" {
		t.Fatalf("expected 404 status error, got %v", err)
	}

	_, err = api.NewClient(srv.URL, "wrong").Status(ctx)
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestClientUnavailable(t *testing.T) {
	_, err := api.NewClient("127.0.0.1:1", "").Health(context.Background())
	if !errors.Is(err, api.ErrDaemonUnavailable) {
		t.Fatalf("expected ErrDaemonUnavailable, got %v", err)
	}
	if _, err := api.NewClient("", "").Status(context.Background()); !errors.Is(err, api.ErrDaemonUnavailable) {
		t.Fatalf("expected ErrDaemonUnavailable for empty bind, got %v", err)
	}
}
