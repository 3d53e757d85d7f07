package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scenetrack/internal/logging"
)

func TestLogsFiltersByJob(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.cfg.Paths.LogDir, logging.LogFileName)
	content := strings.Join([]string{
		"2026-01-02T15:04:05Z INFO workflow: job started job_id=1 video_id=abc",
		"2026-01-02T15:04:06Z INFO workflow: job started job_id=2 video_id=def",
		"2026-01-02T15:04:09Z INFO workflow: job completed job_id=1 video_id=abc",
	}, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := env.run(t, "logs", "--job", "1")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Count(out, "\n") != 2 || strings.Contains(out, "job_id=2") {
		t.Fatalf("unexpected filtered output: %q", out)
	}

	out, _, err = env.run(t, "logs", "-n", "1")
	if err != nil {
		t.Fatalf("logs -n: %v", err)
	}
	if strings.TrimSpace(out) != "2026-01-02T15:04:09Z INFO workflow: job completed job_id=1 video_id=abc" {
		t.Fatalf("unexpected last line: %q", out)
	}
}
