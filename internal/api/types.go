package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a queued analysis in a transport-friendly format.
type Job struct {
	ID            int64  `json:"id"`
	VideoID       string `json:"videoId"`
	VideoName     string `json:"videoName,omitempty"`
	ContentType   string `json:"contentType,omitempty"`
	Size          int64  `json:"size,omitempty"`
	SourceURL     string `json:"sourceUrl"`
	Status        string `json:"status"`
	Stage         string `json:"stage"`
	RequestID     string `json:"requestId,omitempty"`
	SceneCount    int    `json:"sceneCount"`
	SkippedCount  int    `json:"skippedCount"`
	TrackURL      string `json:"trackUrl,omitempty"`
	EmojiTrackURL string `json:"emojiTrackUrl,omitempty"`
	Message       string `json:"message,omitempty"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
	NeedsReview   bool   `json:"needsReview"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
	LastHeartbeat string `json:"lastHeartbeat,omitempty"`
}

// StageHealth mirrors readiness reporting for the analysis pipeline.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running    bool           `json:"running"`
	QueueStats map[string]int `json:"queueStats"`
	LastError  string         `json:"lastError,omitempty"`
	LastJob    *Job           `json:"lastJob,omitempty"`
	Health     StageHealth    `json:"health"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	QueueDBPath  string         `json:"queueDbPath"`
	LockFilePath string         `json:"lockFilePath"`
	Watching     string         `json:"watching,omitempty"`
	Workflow     WorkflowStatus `json:"workflow"`
}

// HealthResponse is returned by the unauthenticated liveness endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	UptimeS int64  `json:"uptimeSeconds"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job     Job  `json:"job"`
	Created bool `json:"created,omitempty"`
}

// RetryResponse reports how many jobs went back to pending.
type RetryResponse struct {
	Updated int64 `json:"updated"`
}

// ErrorResponse is the body of every non-2xx API reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
