package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scenetrack/internal/config"
	"scenetrack/internal/logging"
	"scenetrack/internal/services"
)

func newFileLogger(t *testing.T, format, level string) (*slog.Logger, func() string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.log")
	logger, err := logging.New(logging.Options{
		Format:           format,
		Level:            level,
		OutputPaths:      []string{path},
		ErrorOutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return logger, func() string {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read log: %v", err)
		}
		return string(data)
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello")

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("expected message in log file, got %q", data)
	}
}

func TestConsoleLoggerRendersComponentPrefix(t *testing.T) {
	logger, read := newFileLogger(t, "console", "info")
	logger.Info("scenes published", logging.String(logging.FieldComponent, "pipeline"), logging.Int("scenes", 3))

	content := read()
	if !strings.Contains(content, "INFO pipeline: scenes published") {
		t.Fatalf("expected component prefix, got %q", content)
	}
	if !strings.Contains(content, "scenes=3") {
		t.Fatalf("expected attribute, got %q", content)
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information for info level, got %q", content)
	}
}

func TestConsoleLoggerQuotesValues(t *testing.T) {
	logger, read := newFileLogger(t, "console", "debug")
	logger.Debug("lookup", logging.String("label", "hot dog"))
	if content := read(); !strings.Contains(content, `label="hot dog"`) {
		t.Fatalf("expected quoted value, got %q", content)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logger, read := newFileLogger(t, "json", "info")
	logger.Warn("slow", logging.Duration("elapsed", time.Second))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(read())), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["level"] != "warn" {
		t.Fatalf("unexpected level %v", entry["level"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
	if entry["msg"] != "slow" {
		t.Fatalf("unexpected msg %v", entry["msg"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{path}, ErrorOutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := services.WithJobID(context.Background(), 42)
	ctx = services.WithVideoID(ctx, "abc123")
	ctx = services.WithStage(ctx, "consolidating")
	ctx = services.WithRequestID(ctx, "req-1")

	logging.WithContext(ctx, logger).Info("tick")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, want := range []string{"job_id=42", "video_id=abc123", "stage=consolidating", "correlation_id=req-1"} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("expected %q in %q", want, data)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{path}, ErrorOutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logging.WarnWithContext(logger, "annotation skipped", "annotation_skipped", logging.String(logging.FieldImpact, "label missing from track"))

	data, _ := os.ReadFile(path)
	content := string(data)
	if !strings.Contains(content, "event_type=annotation_skipped") {
		t.Fatalf("expected event type, got %q", content)
	}
	if !strings.Contains(content, `impact="label missing from track"`) {
		t.Fatalf("expected caller impact kept, got %q", content)
	}
	if strings.Count(content, "impact=") != 1 {
		t.Fatalf("expected a single impact field, got %q", content)
	}
}

func TestPruneLogsKeepsRecentAndProtected(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().AddDate(0, 0, -10)
	for _, name := range []string{"a.log", "b.log", "keep.log", "other.txt"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if name != "b.log" {
			if err := os.Chtimes(path, old, old); err != nil {
				t.Fatalf("chtimes: %v", err)
			}
		}
	}

	removed := logging.PruneLogs(logging.NewNop(), dir, "*.log", 3, filepath.Join(dir, "keep.log"))
	if removed != 1 {
		t.Fatalf("expected one file removed, got %d", removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.log")); !os.IsNotExist(err) {
		t.Fatalf("expected a.log removed, stat err=%v", err)
	}
	for _, name := range []string{"b.log", "keep.log", "other.txt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s kept: %v", name, err)
		}
	}
	if logging.PruneLogs(nil, dir, "*.log", 0) != 0 {
		t.Fatal("expected zero retention to disable pruning")
	}
}

func TestNewWriterUsesGivenWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWriter(&buf, "warn", "json")
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", logging.String("component", "cli"))
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := logging.NewWriter(&buf, "info", "xml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
