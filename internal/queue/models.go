package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending       Status = "pending"
	StatusAnnotating    Status = "annotating"
	StatusConsolidating Status = "consolidating"
	StatusPublishing    Status = "publishing"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
	StatusReview        Status = "review"
)

var allStatuses = []Status{
	StatusPending,
	StatusAnnotating,
	StatusConsolidating,
	StatusPublishing,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = []Status{StatusAnnotating, StatusConsolidating, StatusPublishing}

// Job is one analysis request persisted in SQLite.
type Job struct {
	ID            int64
	VideoID       string
	VideoName     string
	ContentType   string
	Size          int64
	SourceURL     string
	Status        Status
	RequestID     string
	SceneCount    int
	SkippedCount  int
	TrackURL      string
	EmojiTrackURL string
	ResultMessage string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastHeartbeat *time.Time
}

// NewJobParams describes a job to enqueue.
type NewJobParams struct {
	VideoID     string
	VideoName   string
	ContentType string
	Size        int64
	SourceURL   string
	RequestID   string
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Review     int
	Completed  int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	for _, s := range processingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsProcessing returns true when the job is in flight.
func (j Job) IsProcessing() bool { return IsProcessingStatus(j.Status) }

// IsActive reports whether the job is queued or in flight.
func (j Job) IsActive() bool { return j.Status == StatusPending || j.IsProcessing() }

// IsTerminal reports whether the job has finished, successfully or not.
func (j Job) IsTerminal() bool {
	switch j.Status {
	case StatusCompleted, StatusFailed, StatusReview:
		return true
	default:
		return false
	}
}

// SetFailed marks the job with a terminal failure status and message.
func (j *Job) SetFailed(status Status, message string) {
	if status != StatusReview {
		status = StatusFailed
	}
	j.Status = status
	j.ErrorMessage = message
	j.LastHeartbeat = nil
}

// StageKey returns the stage identifier used in API and CLI presentation.
func (s Status) StageKey() string {
	switch s {
	case StatusPending:
		return "queued"
	case StatusCompleted:
		return "done"
	case "":
		return ""
	default:
		return string(s)
	}
}
