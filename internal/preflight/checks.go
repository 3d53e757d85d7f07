package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"scenetrack/internal/annotation"
	"scenetrack/internal/config"
	"scenetrack/internal/queue"
	"scenetrack/internal/services/emojidex"
	"scenetrack/internal/services/retry"
)

const remoteCheckTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckQueueDatabase opens the job database and verifies its schema. A
// database that does not exist yet passes; the daemon creates it.
func CheckQueueDatabase(ctx context.Context, path string) Result {
	const name = "Job database"
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first start)", path)}
	}
	store, err := queue.OpenPath(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()

	health, err := store.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if !health.IntegrityCheck || len(health.MissingColumns) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (schema v%d, integrity %t, missing %s)",
			path, health.SchemaVersion, health.IntegrityCheck, strings.Join(health.MissingColumns, ","))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d jobs, schema v%d)", path, health.TotalJobs, health.SchemaVersion)}
}

// CheckAnnotation verifies that the annotation service answers. It makes a
// single attempt.
func CheckAnnotation(ctx context.Context, cfg *config.Config) Result {
	const name = "Annotation service"
	if strings.TrimSpace(cfg.Annotation.BaseURL) == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	if strings.TrimSpace(cfg.Annotation.APIKey) == "" {
		return Result{Name: name, Detail: "missing api key"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, remoteCheckTimeout)
	defer cancel()

	client := annotation.NewClient(annotation.Config{
		BaseURL: cfg.Annotation.BaseURL,
		APIKey:  cfg.Annotation.APIKey,
		Timeout: remoteCheckTimeout,
	}, annotation.WithRetryPolicy(singleAttempt()))
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckEmoji verifies the emoji lookup service when emoji tracks are enabled.
func CheckEmoji(ctx context.Context, cfg *config.Config) Result {
	const name = "Emoji lookup"
	if !cfg.Tracks.EmojiEnabled {
		return Result{Name: name, Skipped: true, Detail: "Disabled"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, remoteCheckTimeout)
	defer cancel()

	client := emojidex.NewClient(emojidex.Config{
		BaseURL: cfg.Tracks.EmojiBaseURL,
		Timeout: remoteCheckTimeout,
	}, emojidex.WithRetryPolicy(singleAttempt()))
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

func singleAttempt() retry.Policy {
	policy := retry.DefaultPolicy()
	policy.Attempts = 1
	return policy
}

// summarizeError produces a human-readable summary for remote check failures.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (service unreachable)"
	}
	return err.Error()
}
