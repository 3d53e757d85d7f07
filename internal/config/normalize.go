package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeAnnotation()
	if err := c.normalizeConsolidation(); err != nil {
		return err
	}
	c.normalizeTracks()
	c.normalizeWatcher()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockDir) == "" {
		c.Paths.LockDir = defaultLockDir
	}
	if c.Paths.LockDir, err = expandPath(c.Paths.LockDir); err != nil {
		return fmt.Errorf("paths.lock_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("SCENETRACK_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	var err error
	if strings.TrimSpace(c.Storage.RootDir) == "" {
		c.Storage.RootDir = defaultStorageRoot
	}
	if c.Storage.RootDir, err = expandPath(c.Storage.RootDir); err != nil {
		return fmt.Errorf("storage.root_dir: %w", err)
	}
	c.Storage.InputBucket = strings.TrimSpace(c.Storage.InputBucket)
	c.Storage.ProcessingBucket = strings.TrimSpace(c.Storage.ProcessingBucket)
	c.Storage.ArchiveBucket = strings.TrimSpace(c.Storage.ArchiveBucket)
	if value, ok := os.LookupEnv("PROCESSING_BUCKET"); ok && strings.TrimSpace(value) != "" {
		c.Storage.ProcessingBucket = strings.TrimSpace(value)
	}
	return nil
}

func (c *Config) normalizeAnnotation() {
	c.Annotation.BaseURL = strings.TrimRight(strings.TrimSpace(c.Annotation.BaseURL), "/")
	if c.Annotation.BaseURL == "" {
		c.Annotation.BaseURL = defaultAnnotationBaseURL
	}
	c.Annotation.APIKey = strings.TrimSpace(c.Annotation.APIKey)
	if c.Annotation.APIKey == "" {
		if value, ok := os.LookupEnv("ANNOTATION_API_KEY"); ok {
			c.Annotation.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Annotation.RetryAttempts <= 0 {
		c.Annotation.RetryAttempts = defaultAnnotationRetryAttempts
	}
}

// normalizeConsolidation applies CONFIDENCE_THRESHOLD. The variable is read
// once here; later changes to the environment have no effect.
func (c *Config) normalizeConsolidation() error {
	value, ok := os.LookupEnv(ConfidenceThresholdEnv)
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	threshold, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("%s: invalid float %q", ConfidenceThresholdEnv, value)
	}
	c.Consolidation.ConfidenceThreshold = threshold
	return nil
}

func (c *Config) normalizeTracks() {
	c.Tracks.LabelFile = strings.TrimSpace(c.Tracks.LabelFile)
	if c.Tracks.LabelFile == "" {
		c.Tracks.LabelFile = defaultLabelFile
	}
	c.Tracks.EmojiFile = strings.TrimSpace(c.Tracks.EmojiFile)
	if c.Tracks.EmojiFile == "" {
		c.Tracks.EmojiFile = defaultEmojiFile
	}
	c.Tracks.EmojiBaseURL = strings.TrimRight(strings.TrimSpace(c.Tracks.EmojiBaseURL), "/")
	if c.Tracks.EmojiBaseURL == "" {
		c.Tracks.EmojiBaseURL = defaultEmojiBaseURL
	}
	if c.Tracks.EmojiTimeoutSeconds <= 0 {
		c.Tracks.EmojiTimeoutSeconds = defaultEmojiTimeout
	}
	if strings.TrimSpace(c.Tracks.EmojiFallback) == "" {
		c.Tracks.EmojiFallback = defaultEmojiFallback
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("SCENETRACK_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeWatcher() {
	if len(c.Watcher.Extensions) == 0 {
		c.Watcher.Extensions = append([]string(nil), defaultWatcherExtensions...)
	} else {
		exts := make([]string, 0, len(c.Watcher.Extensions))
		seen := make(map[string]struct{}, len(c.Watcher.Extensions))
		for _, ext := range c.Watcher.Extensions {
			normalized := strings.ToLower(strings.TrimSpace(ext))
			if normalized == "" {
				continue
			}
			if !strings.HasPrefix(normalized, ".") {
				normalized = "." + normalized
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			exts = append(exts, normalized)
		}
		if len(exts) == 0 {
			exts = append(exts, defaultWatcherExtensions...)
		}
		c.Watcher.Extensions = exts
	}
	if c.Watcher.DebounceSeconds < 0 {
		c.Watcher.DebounceSeconds = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
