package track_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"scenetrack/internal/annotation"
	"scenetrack/internal/scene"
	"scenetrack/internal/track"
)

func catDogScenes(t *testing.T) []*scene.Scene {
	t.Helper()
	seg := func(start, end int64) annotation.LabelSegment {
		return annotation.LabelSegment{
			Segment: &annotation.Segment{
				StartTimeOffset: &annotation.Offset{Seconds: start},
				EndTimeOffset:   &annotation.Offset{Seconds: end},
			},
			Confidence: 0.9,
		}
	}
	annotations := []annotation.LabelAnnotation{
		{
			Entity:           &annotation.Entity{Description: "cat"},
			CategoryEntities: []annotation.Entity{{Description: "animal"}, {Description: "pet"}},
			Segments:         []annotation.LabelSegment{seg(10, 30)},
		},
		{
			Entity:   &annotation.Entity{Description: "dog"},
			Segments: []annotation.LabelSegment{seg(20, 25)},
		},
	}
	result, err := scene.NewConsolidator(scene.NewFactory(0.5)).Consolidate(annotations, nil)
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	return result.Scenes
}

func TestFormatLine(t *testing.T) {
	scenes := catDogScenes(t)
	if got, want := track.FormatLine(scenes[1], false), "00:00:20.000 --> 00:00:25.000\ncat - dog\n\n"; got != want {
		t.Fatalf("FormatLine = %q, want %q", got, want)
	}
	if got, want := track.FormatLine(scenes[1], true), "00:00:20.000 --> 00:00:25.000\ncat (animal/pet) - dog\n\n"; got != want {
		t.Fatalf("FormatLine with categories = %q, want %q", got, want)
	}
}

func TestRenderJoinsCues(t *testing.T) {
	scenes := catDogScenes(t)
	got := track.Render(scenes, false)
	want := "00:00:10.000 --> 00:00:20.000\ncat\n\n" +
		"\n00:00:20.000 --> 00:00:25.000\ncat - dog\n\n" +
		"\n00:00:25.000 --> 00:00:30.000\ncat\n\n"
	if got != want {
		t.Fatalf("Render = %q, want %q", got, want)
	}
	if vtt := track.RenderVTT(scenes, false); !strings.HasPrefix(vtt, "WEBVTT\n\n00:00:10.000") {
		t.Fatalf("unexpected vtt %q", vtt)
	}
	if track.Render(nil, true) != "" {
		t.Fatal("expected empty track for no scenes")
	}
}

func TestRenderJSON(t *testing.T) {
	data, err := track.RenderJSON(catDogScenes(t))
	if err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}
	var decoded []struct {
		Start    string `json:"start"`
		EndMS    int64  `json:"end_ms"`
		Entities []struct {
			Label      string   `json:"label"`
			Categories []string `json:"categories"`
		} `json:"entities"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != 3 || decoded[1].Start != "00:00:20.000" || decoded[1].EndMS != 25000 {
		t.Fatalf("unexpected json %s", data)
	}
	if len(decoded[1].Entities) != 2 || decoded[1].Entities[0].Categories[1] != "pet" {
		t.Fatalf("unexpected entities %+v", decoded[1].Entities)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]track.Format{"": track.FormatText, "VTT": track.FormatVTT, " json ": track.FormatJSON} {
		got, err := track.ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := track.ParseFormat("srt"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestEmojiTrackCachesPerLabel(t *testing.T) {
	calls := map[string]int{}
	resolver := track.EmojiResolverFunc(func(_ context.Context, term string) (string, error) {
		calls[term]++
		switch term {
		case "pet":
			return "🐾", nil
		case "dog":
			return "🐶", nil
		}
		return "", nil
	})
	cache := track.NewEmojiCache(resolver, "", nil)
	got, err := track.EmojiTrack(context.Background(), catDogScenes(t), cache)
	if err != nil {
		t.Fatalf("EmojiTrack: %v", err)
	}
	want := "WEBVTT\n\n" +
		"00:00:10.000 --> 00:00:20.000\n🐾\n\n" +
		"\n00:00:20.000 --> 00:00:25.000\n🐾 - 🐶\n\n" +
		"\n00:00:25.000 --> 00:00:30.000\n🐾\n\n"
	if got != want {
		t.Fatalf("EmojiTrack = %q, want %q", got, want)
	}
	if calls["cat"] != 1 || calls["animal"] != 1 || calls["pet"] != 1 || calls["dog"] != 1 {
		t.Fatalf("expected one lookup per term, got %v", calls)
	}
	if cache.Lookups() != 4 {
		t.Fatalf("Lookups = %d, want 4", cache.Lookups())
	}
}

func TestEmojiCacheFallbacks(t *testing.T) {
	failing := track.EmojiResolverFunc(func(context.Context, string) (string, error) {
		return "", errors.New("boom")
	})
	cache := track.NewEmojiCache(failing, "?", nil)
	e := scene.NewSceneEntity(0.9, annotation.Entity{Description: "tree"}, nil)
	got, err := cache.Resolve(context.Background(), e)
	if err != nil || got != "?" {
		t.Fatalf("Resolve = %q, %v; want fallback", got, err)
	}
	if cache.Failures() != 1 {
		t.Fatalf("Failures = %d, want 1", cache.Failures())
	}

	none := track.NewEmojiCache(nil, "", nil)
	if got, _ := none.Resolve(context.Background(), e); got != track.DefaultFallbackEmoji {
		t.Fatalf("expected default fallback, got %q", got)
	}
}

func TestEmojiCacheStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resolver := track.EmojiResolverFunc(func(ctx context.Context, _ string) (string, error) {
		return "", ctx.Err()
	})
	cache := track.NewEmojiCache(resolver, "", nil)
	_, err := track.EmojiTrack(ctx, catDogScenes(t), cache)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
