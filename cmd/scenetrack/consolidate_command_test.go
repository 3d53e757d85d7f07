package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const catDogResults = `{"name":"operations/1","done":true,"response":{"annotationResults":[{
  "shotLabelAnnotations":[
    {"entity":{"description":"cat"},"categoryEntities":[{"description":"animal"}],
     "segments":[{"segment":{"startTimeOffset":"10s","endTimeOffset":"30s"},"confidence":0.9}]},
    {"entity":{"description":"dog"},"categoryEntities":[{"description":"animal"}],
     "segments":[{"segment":{"startTimeOffset":"20s","endTimeOffset":"25s"},"confidence":0.9}]},
    {"entity":{"description":"mouse"},
     "segments":[{"segment":{"startTimeOffset":"1s","endTimeOffset":"2s"},"confidence":0.2},
                 {"segment":{"startTimeOffset":"3s","endTimeOffset":"4s"},"confidence":0.1}]}
  ],
  "shotAnnotations":[{"startTimeOffset":"0s","endTimeOffset":"40s"}]
}]}}`

func writeResults(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write results: %v", err)
	}
	return path
}

func TestConsolidatePrintsScenes(t *testing.T) {
	env := setupCLITestEnv(t)
	path := writeResults(t, catDogResults)

	out, _, err := env.run(t, "consolidate", path, "--categories")
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}
	if strings.HasPrefix(out, "WEBVTT") {
		t.Fatalf("text output should not carry a header: %q", out)
	}
	requireContains(t, out, "00:00:10.000 --> 00:00:20.000\ncat (animal)\n")
	requireContains(t, out, "00:00:20.000 --> 00:00:25.000\ncat (animal) - dog (animal)\n")
	if strings.Contains(out, "mouse") {
		t.Fatalf("low confidence label should be filtered: %q", out)
	}

	out, _, err = env.run(t, "consolidate", path, "--format", "vtt", "--categories=false")
	if err != nil {
		t.Fatalf("consolidate vtt: %v", err)
	}
	if !strings.HasPrefix(out, "WEBVTT\n\n") {
		t.Fatalf("expected WebVTT header, got %q", out)
	}
	requireContains(t, out, "cat - dog")

	out, _, err = env.run(t, "consolidate", path, "--format", "json")
	if err != nil {
		t.Fatalf("consolidate json: %v", err)
	}
	requireContains(t, out, `"label": "dog"`)
}

func TestConsolidateReportsEmptyResult(t *testing.T) {
	env := setupCLITestEnv(t)
	path := writeResults(t, `{"annotationResults":[{"shotLabelAnnotations":[
    {"entity":{"description":"mouse"},
     "segments":[{"segment":{"startTimeOffset":"1s","endTimeOffset":"2s"},"confidence":0.2},
                 {"segment":{"startTimeOffset":"3s","endTimeOffset":"4s"},"confidence":0.1}]}
  ]}]}`)

	out, stderr, err := env.run(t, "consolidate", path)
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}
	if strings.TrimSpace(out) != "" {
		t.Fatalf("expected no cues, got %q", out)
	}
	requireContains(t, stderr, "no scenes")
}

func TestConsolidateRejectsBadInput(t *testing.T) {
	env := setupCLITestEnv(t)
	path := writeResults(t, catDogResults)

	if _, _, err := env.run(t, "consolidate", path, "--format", "srt"); err == nil {
		t.Fatal("expected unknown format error")
	}
	if _, _, err := env.run(t, "consolidate", path, "--emoji", "--format", "json"); err == nil {
		t.Fatal("expected --emoji with json to be rejected")
	}
	if _, _, err := env.run(t, "consolidate", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing results file")
	}
}
