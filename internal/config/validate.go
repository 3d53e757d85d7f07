package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// bucketNamePattern mirrors the bucket part of a gs:// URL.
var bucketNamePattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateAnnotation(); err != nil {
		return err
	}
	if err := c.validateConsolidation(); err != nil {
		return err
	}
	if err := c.validateTracks(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateStorage() error {
	if strings.TrimSpace(c.Storage.RootDir) == "" {
		return errors.New("storage.root_dir must be set")
	}
	buckets := map[string]string{
		"storage.input_bucket":      c.Storage.InputBucket,
		"storage.processing_bucket": c.Storage.ProcessingBucket,
	}
	if c.Storage.ArchiveSource {
		buckets["storage.archive_bucket"] = c.Storage.ArchiveBucket
	}
	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		name := buckets[key]
		if name == "" {
			return fmt.Errorf("%s must be set", key)
		}
		if !bucketNamePattern.MatchString(name) {
			return fmt.Errorf("%s %q must contain only lowercase letters, digits and dashes", key, name)
		}
	}
	return nil
}

func (c *Config) validateAnnotation() error {
	parsed, err := url.Parse(c.Annotation.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("annotation.base_url %q must be an absolute URL", c.Annotation.BaseURL)
	}
	return ensurePositiveMap(map[string]int{
		"annotation.timeout_seconds":       c.Annotation.TimeoutSeconds,
		"annotation.poll_interval_seconds": c.Annotation.PollIntervalSeconds,
		"annotation.max_wait_seconds":      c.Annotation.MaxWaitSeconds,
	})
}

func (c *Config) validateConsolidation() error {
	if c.Consolidation.ConfidenceThreshold < 0 || c.Consolidation.ConfidenceThreshold > 1 {
		return errors.New("consolidation.confidence_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateTracks() error {
	for key, name := range map[string]string{
		"tracks.label_file": c.Tracks.LabelFile,
		"tracks.emoji_file": c.Tracks.EmojiFile,
	} {
		if strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("%s %q must be a bare file name", key, name)
		}
	}
	if c.Tracks.EmojiEnabled && c.Tracks.LabelFile == c.Tracks.EmojiFile {
		return errors.New("tracks.emoji_file must differ from tracks.label_file")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic %q must be an http(s) topic URL", c.Notifications.NtfyTopic)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
