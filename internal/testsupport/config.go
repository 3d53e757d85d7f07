package testsupport

import (
	"path/filepath"
	"testing"

	"scenetrack/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options. Remote
// services default to unroutable endpoints so tests never reach the network.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.LockDir = filepath.Join(base, "locks")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Storage.RootDir = filepath.Join(base, "buckets")
	cfgVal.Annotation.BaseURL = "http://127.0.0.1:1"
	cfgVal.Annotation.APIKey = "test"
	cfgVal.Annotation.PollIntervalSeconds = 1
	cfgVal.Annotation.RetryAttempts = 1
	cfgVal.Tracks.EmojiEnabled = false
	cfgVal.Tracks.EmojiBaseURL = "http://127.0.0.1:1"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithAnnotationURL points the annotation client at url, typically an
// httptest server.
func WithAnnotationURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Annotation.BaseURL = url
	}
}

// WithEmojiURL enables emoji lookups against url.
func WithEmojiURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tracks.EmojiEnabled = true
		b.cfg.Tracks.EmojiBaseURL = url
	}
}

// WithArchive enables archiving of processed source videos.
func WithArchive() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.ArchiveSource = true
	}
}

// WithStrict enables strict consolidation.
func WithStrict() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Consolidation.Strict = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
