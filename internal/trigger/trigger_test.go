package trigger_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scenetrack/internal/services"
	"scenetrack/internal/storage"
	"scenetrack/internal/trigger"
)

func TestDecodePushRoundTrip(t *testing.T) {
	in := trigger.Video{ID: "abc", Name: "clip.mp4", ContentType: "video/mp4", Size: "2048", Link: "gs://video-input/clip.mp4"}
	body, err := trigger.EncodePush(in, "42")
	if err != nil {
		t.Fatal(err)
	}
	video, env, err := trigger.DecodePush(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("DecodePush: %v", err)
	}
	if video != in || env.Message.MessageID != "42" {
		t.Fatalf("unexpected decode %+v %+v", video, env.Message)
	}
	if video.SizeBytes() != 2048 {
		t.Fatalf("SizeBytes = %d", video.SizeBytes())
	}
	if err := video.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDecodePushMissingMessage(t *testing.T) {
	_, _, err := trigger.DecodePush(strings.NewReader(`{"subscription":"projects/x/subscriptions/y"}`))
	if !trigger.IsBadPush(err) || err.Error() != "validation error: invalid Pub/Sub message format" {
		t.Fatalf("expected bad push, got %v", err)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatal("expected validation error")
	}
	if _, _, err := trigger.DecodePush(strings.NewReader(`not json`)); !trigger.IsBadPush(err) {
		t.Fatalf("expected bad push for malformed body, got %v", err)
	}
	if _, _, err := trigger.DecodePush(strings.NewReader(`{"message":{"data":"***"}}`)); err == nil || trigger.IsBadPush(err) {
		t.Fatalf("expected non-envelope validation error, got %v", err)
	}
}

func TestVideoValidate(t *testing.T) {
	if err := (trigger.Video{ID: "a", Link: "http://x/y"}).Validate(); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected invalid link, got %v", err)
	}
	if err := (trigger.Video{Link: "gs://b/x.mp4"}).Validate(); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected missing id, got %v", err)
	}
}

func TestDecodeStorageEvent(t *testing.T) {
	video, err := trigger.DecodeStorageEvent(strings.NewReader(`{
		"bucket": "video-input", "name": "clips/clip.mp4",
		"md5Hash": "XrY7u+Ae7tCTyyK7j1rNww==", "contentType": "video/mp4", "size": "11"}`))
	if err != nil {
		t.Fatalf("DecodeStorageEvent: %v", err)
	}
	if video.ID != "XrY7u+Ae7tCTyyK7j1rNww==" || video.Link != "gs://video-input/clips/clip.mp4" || video.Name != "clips/clip.mp4" {
		t.Fatalf("unexpected video %+v", video)
	}
	if _, err := trigger.DecodeStorageEvent(strings.NewReader(`{"bucket":"b","name":"x.mp4"}`)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected missing hash error, got %v", err)
	}
}

func TestVideoFromFile(t *testing.T) {
	store := storage.New(t.TempDir())
	if err := store.CreateBucket("video-input"); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(store.Root(), "video-input", "clip.mp4")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	video, err := trigger.VideoFromFile(store, path)
	if err != nil {
		t.Fatalf("VideoFromFile: %v", err)
	}
	if video.ID != "XrY7u+Ae7tCTyyK7j1rNww==" || video.Size != "11" || video.Link != "gs://video-input/clip.mp4" {
		t.Fatalf("unexpected video %+v", video)
	}
}
