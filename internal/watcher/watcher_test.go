package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"scenetrack/internal/logging"
	"scenetrack/internal/watcher"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
	seen  chan string
}

func newRecorder() *recorder {
	return &recorder{seen: make(chan string, 16)}
}

func (r *recorder) onFile(_ context.Context, path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	r.seen <- path
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

func startWatcher(t *testing.T, dir string, rec *recorder) *watcher.Watcher {
	t.Helper()
	w, err := watcher.New(watcher.Options{
		Dir:        dir,
		Extensions: []string{".mp4", "MKV"},
		Debounce:   50 * time.Millisecond,
	}, rec.onFile, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func expectPath(t *testing.T, rec *recorder, want string) {
	t.Helper()
	select {
	case got := <-rec.seen:
		if got != want {
			t.Fatalf("callback path = %q, want %q", got, want)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", want)
	}
}

func TestWatcherReportsNewVideos(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	startWatcher(t, dir, rec)

	if err := os.WriteFile(filepath.Join(dir, ".cats.mp4.123.tmp"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	video := filepath.Join(dir, "cats.mp4")
	if err := os.WriteFile(video, []byte("frames"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectPath(t, rec, video)

	time.Sleep(200 * time.Millisecond)
	if rec.count() != 1 {
		t.Fatalf("expected exactly one callback, got %d", rec.count())
	}
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	startWatcher(t, dir, rec)

	sub := filepath.Join(dir, "2024")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)

	video := filepath.Join(sub, "dogs.MKV")
	if err := os.WriteFile(video, []byte("frames"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectPath(t, rec, video)
}

func TestMatchesExtensions(t *testing.T) {
	w, err := watcher.New(watcher.Options{Dir: t.TempDir(), Extensions: []string{"mp4", ".MOV"}}, func(context.Context, string) {}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Stop()
	cases := map[string]bool{
		"a.mp4": true,
		"a.MP4": true,
		"a.mov": true,
		"a.avi": false,
		"a":     false,
	}
	for name, want := range cases {
		if got := w.Matches(name); got != want {
			t.Errorf("Matches(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNewRequiresDirAndCallback(t *testing.T) {
	if _, err := watcher.New(watcher.Options{}, func(context.Context, string) {}, nil); err == nil {
		t.Fatal("expected error for missing dir")
	}
	if _, err := watcher.New(watcher.Options{Dir: t.TempDir()}, nil, nil); err == nil {
		t.Fatal("expected error for missing callback")
	}
}
