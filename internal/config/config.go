package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	LockDir  string `toml:"lock_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Storage describes the bucket layout. Buckets are directories below RootDir.
type Storage struct {
	RootDir          string `toml:"root_dir"`
	InputBucket      string `toml:"input_bucket"`
	ProcessingBucket string `toml:"processing_bucket"`
	ArchiveBucket    string `toml:"archive_bucket"`
	ArchiveSource    bool   `toml:"archive_source"`
}

// Annotation contains configuration for the remote video annotation service.
type Annotation struct {
	BaseURL             string `toml:"base_url"`
	APIKey              string `toml:"api_key"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	MaxWaitSeconds      int    `toml:"max_wait_seconds"`
	RetryAttempts       int    `toml:"retry_attempts"`
}

// Consolidation controls how annotations are folded into scenes.
type Consolidation struct {
	// ConfidenceThreshold is the minimum segment confidence kept when an
	// annotation carries more than one segment. CONFIDENCE_THRESHOLD wins.
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	// Strict aborts a run on the first invalid annotation instead of skipping it.
	Strict bool `toml:"strict"`
}

// Tracks contains configuration for the published caption tracks.
type Tracks struct {
	IncludeCategories   bool   `toml:"include_categories"`
	LabelFile           string `toml:"label_file"`
	EmojiEnabled        bool   `toml:"emoji_enabled"`
	EmojiFile           string `toml:"emoji_file"`
	EmojiBaseURL        string `toml:"emoji_base_url"`
	EmojiTimeoutSeconds int    `toml:"emoji_timeout_seconds"`
	EmojiFallback       string `toml:"emoji_fallback"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Watcher contains configuration for the input bucket watcher.
type Watcher struct {
	Enabled         bool     `toml:"enabled"`
	Extensions      []string `toml:"extensions"`
	DebounceSeconds int      `toml:"debounce_seconds"`
}

// Notifications contains configuration for ntfy job notifications.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	NotifyCompleted       bool   `toml:"notify_completed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for scenetrack.
//
// Configuration sections by subsystem:
//   - Paths: data, log and lock directories plus the API bind address
//   - Storage: bucket root and the input/processing/archive bucket names
//   - Annotation: remote annotation service endpoint and polling
//   - Consolidation: confidence threshold and strict mode
//   - Tracks: caption track output and emoji lookup
//   - Workflow: daemon polling intervals and timeouts
//   - Watcher: input bucket watching
//   - Notifications: ntfy topic for job outcomes
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Storage       Storage       `toml:"storage"`
	Annotation    Annotation    `toml:"annotation"`
	Consolidation Consolidation `toml:"consolidation"`
	Tracks        Tracks        `toml:"tracks"`
	Workflow      Workflow      `toml:"workflow"`
	Watcher       Watcher       `toml:"watcher"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scenetrack.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation,
// including one directory per configured bucket.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.LockDir, c.Storage.RootDir}
	for _, bucket := range c.Buckets() {
		dirs = append(dirs, filepath.Join(c.Storage.RootDir, bucket))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Buckets returns the distinct configured bucket names.
func (c *Config) Buckets() []string {
	seen := make(map[string]struct{}, 3)
	var out []string
	for _, name := range []string{c.Storage.InputBucket, c.Storage.ProcessingBucket, c.Storage.ArchiveBucket} {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// QueueDBPath returns the job database location.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.DataDir, "jobs.db")
}

// DaemonLockPath returns the single-instance lock location.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.LockDir, "scenetrackd.lock")
}

// AnnotationTimeout returns the per-request timeout for the annotation service.
func (c *Config) AnnotationTimeout() time.Duration {
	return time.Duration(c.Annotation.TimeoutSeconds) * time.Second
}

// AnnotationPollInterval returns how often long-running operations are polled.
func (c *Config) AnnotationPollInterval() time.Duration {
	return time.Duration(c.Annotation.PollIntervalSeconds) * time.Second
}

// AnnotationMaxWait bounds a single annotation operation.
func (c *Config) AnnotationMaxWait() time.Duration {
	return time.Duration(c.Annotation.MaxWaitSeconds) * time.Second
}

// EmojiTimeout returns the request timeout for emoji lookups.
func (c *Config) EmojiTimeout() time.Duration {
	return time.Duration(c.Tracks.EmojiTimeoutSeconds) * time.Second
}

// NtfyTimeout returns the ntfy request timeout.
func (c *Config) NtfyTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
