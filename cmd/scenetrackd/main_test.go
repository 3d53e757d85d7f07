package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestRunRejectsBadArguments(t *testing.T) {
	if err := run(context.Background(), []string{"--no-such-flag"}); err == nil {
		t.Fatal("expected unknown flag error")
	}
}

func TestRunReportsConfigErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[storage]\ninput_bucket = \"Not Valid\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("HOME", t.TempDir())
	if err := run(context.Background(), []string{"--config", path}); err == nil {
		t.Fatal("expected invalid bucket name to fail")
	}
}
