package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scenetrack/internal/logging"
	"scenetrack/internal/testsupport"
)

func TestRunServesUntilCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, Options{LogLevel: "error"}) }()

	deadline := time.Now().Add(5 * time.Second)
	var pid int
	for time.Now().Before(deadline) {
		if got, err := ReadPID(cfg); err == nil && got > 0 {
			pid = got
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if pid != os.Getpid() {
		t.Fatalf("expected pid file with %d, got %d", os.Getpid(), pid)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}

	if got, _ := ReadPID(cfg); got != 0 {
		t.Fatalf("expected pid file to be removed, got %d", got)
	}
	if _, err := os.Lstat(filepath.Join(cfg.Paths.LogDir, logging.LogFileName)); err != nil {
		t.Fatalf("expected current log pointer: %v", err)
	}
}

func TestRunRejectsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, Options{LogLevel: "error"}) }()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if pid, _ := ReadPID(cfg); pid > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if err := Run(context.Background(), cfg, Options{LogLevel: "error"}); err == nil {
		t.Fatal("expected second instance to fail")
	}
	if pid, _ := ReadPID(cfg); pid != os.Getpid() {
		t.Fatalf("rejected instance must leave the pid file alone, got %d", pid)
	}
	cancel()
	<-done
}
