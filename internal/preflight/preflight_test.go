package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scenetrack/internal/queue"
	"scenetrack/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_Failures(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	for name, path := range map[string]string{
		"missing": filepath.Join(t.TempDir(), "nope"),
		"file":    file,
		"empty":   "",
	} {
		if result := CheckDirectoryAccess(name, path); result.Passed || result.Detail == "" {
			t.Errorf("%s: expected failure with detail, got %#v", name, result)
		}
	}
}

func TestCheckQueueDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	result := CheckQueueDatabase(ctx, cfg.QueueDBPath())
	if !result.Passed || !strings.Contains(result.Detail, "created on first start") {
		t.Fatalf("expected missing database to pass, got %#v", result)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	testsupport.NewJob(t, store, "abc", "gs://video-input/a.mp4")
	store.Close()

	result = CheckQueueDatabase(ctx, cfg.QueueDBPath())
	if !result.Passed || !strings.Contains(result.Detail, "1 jobs") {
		t.Fatalf("expected healthy database, got %#v", result)
	}
}

func TestCheckAnnotation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithAnnotationURL(srv.URL))
	if result := CheckAnnotation(context.Background(), cfg); !result.Passed {
		t.Fatalf("expected reachable service, got %#v", result)
	}

	cfg.Annotation.APIKey = ""
	if result := CheckAnnotation(context.Background(), cfg); result.Passed || result.Detail != "missing api key" {
		t.Fatalf("expected missing key failure, got %#v", result)
	}
}

func TestCheckAnnotation_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithAnnotationURL(srv.URL))
	if result := CheckAnnotation(context.Background(), cfg); result.Passed {
		t.Fatal("expected failure for 502")
	}
}

func TestCheckEmoji(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if result := CheckEmoji(context.Background(), cfg); !result.Skipped {
		t.Fatalf("expected skipped check when disabled, got %#v", result)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"emoji":[{"code":"smile","moji":"😄"}]}`))
	}))
	defer srv.Close()

	cfg = testsupport.NewConfig(t, testsupport.WithEmojiURL(srv.URL))
	if result := CheckEmoji(context.Background(), cfg); !result.Passed {
		t.Fatalf("expected reachable emoji service, got %#v", result)
	}
}

func TestRunAll(t *testing.T) {
	if RunAll(context.Background(), nil) != nil {
		t.Fatal("expected nil results for nil config")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithAnnotationURL(srv.URL))
	results := RunAll(context.Background(), cfg)
	// data, lock, storage root, three buckets, database, annotation, emoji
	if len(results) != 9 {
		t.Fatalf("expected 9 results, got %d: %#v", len(results), results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %#v", failed)
	}

	if err := os.RemoveAll(filepath.Join(cfg.Storage.RootDir, cfg.Storage.ArchiveBucket)); err != nil {
		t.Fatal(err)
	}
	failed := Failed(RunAll(context.Background(), cfg))
	if len(failed) != 1 || failed[0].Name != "Bucket video-archive" {
		t.Fatalf("expected archive bucket failure, got %#v", failed)
	}
}
