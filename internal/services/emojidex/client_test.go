package emojidex_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"scenetrack/internal/services/emojidex"
	"scenetrack/internal/services/retry"
	"scenetrack/internal/track"
)

var _ track.EmojiResolver = (*emojidex.Client)(nil)
var _ track.EmojiResolver = emojidex.Disabled{}

func fastPolicy() retry.Policy {
	return retry.Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Sleeper: func(time.Duration) {}}
}

func TestEmojiReturnsFirstNonNullMoji(t *testing.T) {
	codes := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/emoji" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		codes <- r.URL.Query().Get("code_cont")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"emoji":[{"code":"dog_face_custom","moji":null},{"code":"dog","moji":"🐕"},{"code":"dog2","moji":"🐶"}],"meta":{"count":3}}`))
	}))
	defer srv.Close()

	client := emojidex.NewClient(emojidex.Config{BaseURL: srv.URL + "/"}, emojidex.WithRetryPolicy(fastPolicy()))
	got, err := client.Emoji(context.Background(), "  Hot  Dog ")
	if err != nil {
		t.Fatalf("Emoji: %v", err)
	}
	if got != "🐕" {
		t.Fatalf("Emoji = %q, want 🐕", got)
	}
	if gotCode := <-codes; gotCode != "hot_dog" {
		t.Fatalf("code_cont = %q, want hot_dog", gotCode)
	}
}

func TestEmojiNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"emoji":[]}`))
	}))
	defer srv.Close()

	client := emojidex.NewClient(emojidex.Config{BaseURL: srv.URL})
	got, err := client.Emoji(context.Background(), "spaceship")
	if err != nil || got != "" {
		t.Fatalf("Emoji = %q, %v; want miss", got, err)
	}
	if got, err := client.Emoji(context.Background(), "   "); err != nil || got != "" {
		t.Fatalf("expected blank term to miss without a request, got %q %v", got, err)
	}
}

func TestEmojiRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"emoji":[{"code":"cat","moji":"🐈"}]}`))
	}))
	defer srv.Close()

	client := emojidex.NewClient(emojidex.Config{BaseURL: srv.URL}, emojidex.WithRetryPolicy(fastPolicy()))
	got, err := client.Emoji(context.Background(), "cat")
	if err != nil || got != "🐈" {
		t.Fatalf("Emoji = %q, %v", got, err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestEmojiDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	client := emojidex.NewClient(emojidex.Config{BaseURL: srv.URL}, emojidex.WithRetryPolicy(fastPolicy()))
	if _, err := client.Emoji(context.Background(), "cat"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestEmojiRejectsOversizedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"emoji":[{"code":"cat","moji":"🐈"}],"pad":"`))
		_, _ = w.Write([]byte(strings.Repeat("x", 2<<20)))
		_, _ = w.Write([]byte(`"}`))
	}))
	defer srv.Close()

	client := emojidex.NewClient(emojidex.Config{BaseURL: srv.URL}, emojidex.WithRetryPolicy(fastPolicy()))
	_, err := client.Emoji(context.Background(), "cat")
	if err == nil || !strings.Contains(err.Error(), "response exceeds") {
		t.Fatalf("expected oversized response error, got %v", err)
	}
}

func TestDisabledAlwaysMisses(t *testing.T) {
	got, err := emojidex.Disabled{}.Emoji(context.Background(), "cat")
	if err != nil || got != "" {
		t.Fatalf("Disabled.Emoji = %q, %v", got, err)
	}
}
