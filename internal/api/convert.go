package api

import (
	"time"

	"scenetrack/internal/queue"
	"scenetrack/internal/stage"
	"scenetrack/internal/workflow"
)

// FromJob converts a queue job into its API representation.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}
	dto := Job{
		ID:            job.ID,
		VideoID:       job.VideoID,
		VideoName:     job.VideoName,
		ContentType:   job.ContentType,
		Size:          job.Size,
		SourceURL:     job.SourceURL,
		Status:        string(job.Status),
		Stage:         job.Status.StageKey(),
		RequestID:     job.RequestID,
		SceneCount:    job.SceneCount,
		SkippedCount:  job.SkippedCount,
		TrackURL:      job.TrackURL,
		EmojiTrackURL: job.EmojiTrackURL,
		Message:       job.ResultMessage,
		ErrorMessage:  job.ErrorMessage,
		NeedsReview:   job.Status == queue.StatusReview,
		CreatedAt:     formatTime(job.CreatedAt),
		UpdatedAt:     formatTime(job.UpdatedAt),
	}
	if job.LastHeartbeat != nil {
		dto.LastHeartbeat = formatTime(*job.LastHeartbeat)
	}
	return dto
}

// FromJobs converts a slice of queue jobs.
func FromJobs(jobs []*queue.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		if job == nil {
			continue
		}
		out = append(out, FromJob(job))
	}
	return out
}

// MergeQueueStats returns counts for every status, including zeros.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

// FromHealth converts a pipeline readiness record.
func FromHealth(h stage.Health) StageHealth {
	return StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail}
}

// FromStatusSummary converts workflow diagnostics.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	status := WorkflowStatus{
		Running:    summary.Running,
		QueueStats: MergeQueueStats(summary.QueueStats),
		LastError:  summary.LastError,
		Health:     FromHealth(summary.Health),
	}
	if summary.LastJob != nil {
		job := FromJob(summary.LastJob)
		status.LastJob = &job
	}
	return status
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
