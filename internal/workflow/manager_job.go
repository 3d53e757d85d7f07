package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"scenetrack/internal/logging"
	"scenetrack/internal/notifications"
	"scenetrack/internal/queue"
	"scenetrack/internal/services"
)

func (m *Manager) processJob(ctx context.Context, job *queue.Job) error {
	if job.RequestID == "" {
		job.RequestID = uuid.NewString()
	}
	jobCtx := services.WithJobID(ctx, job.ID)
	jobCtx = services.WithVideoID(jobCtx, job.VideoID)
	jobCtx = services.WithRequestID(jobCtx, job.RequestID)
	logger := logging.WithContext(jobCtx, m.logger)

	started := time.Now()
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("source", job.SourceURL),
	)
	m.setLastJob(job)

	progress := func(ctx context.Context, status queue.Status) {
		now := time.Now().UTC()
		job.Status = status
		job.LastHeartbeat = &now
		if err := m.store.Update(ctx, job); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("failed to persist job progress",
				logging.Error(err),
				logging.String("status", string(status)),
			)
		}
		m.setLastJob(job)
	}

	execErr := m.executeWithHeartbeat(jobCtx, job, progress)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) && ctx.Err() != nil {
			logger.Debug("job interrupted by shutdown")
			return execErr
		}
		m.handleFailure(jobCtx, logger, job, execErr)
		m.setLastError(execErr)
		return execErr
	}

	job.Status = queue.StatusCompleted
	job.ErrorMessage = ""
	job.LastHeartbeat = nil
	if err := m.store.Update(jobCtx, job); err != nil {
		wrapped := fmt.Errorf("persist job result: %w", err)
		logger.Error("failed to persist job result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Int("scenes", job.SceneCount),
		logging.Int("skipped", job.SkippedCount),
		logging.String("track", job.TrackURL),
		logging.Duration("job_duration", time.Since(started)),
	)
	m.setLastJob(job)
	m.notify(jobCtx, logger, notifications.EventJobCompleted, job)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, job *queue.Job, progress func(context.Context, queue.Status)) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)

	execErr := m.handler.Execute(ctx, job, progress)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) handleFailure(ctx context.Context, logger *slog.Logger, job *queue.Job, jobErr error) {
	status := services.FailureStatus(jobErr)
	job.SetFailed(status, jobErr.Error())
	logger.Error("job failed",
		logging.Error(jobErr),
		logging.String(logging.FieldEventType, "job_failure"),
		logging.String("resolved_status", string(status)),
		logging.Bool("retryable", services.Retryable(jobErr)),
		logging.String(logging.FieldErrorHint, failureHint(status)),
	)
	if err := m.store.Update(ctx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist job failure")
		} else {
			logger.Error("failed to persist job failure", logging.Error(err))
		}
	}
	m.setLastJob(job)

	event := notifications.EventJobFailed
	if status == queue.StatusReview {
		event = notifications.EventJobReview
	}
	m.notify(ctx, logger, event, job)
}

// notify publishes a job outcome; delivery problems only warn.
func (m *Manager) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, job *queue.Job) {
	payload := notifications.Payload{
		"jobId":     job.ID,
		"videoId":   job.VideoID,
		"videoName": job.VideoName,
		"scenes":    job.SceneCount,
		"track":     job.TrackURL,
		"error":     job.ErrorMessage,
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.Error(err),
			logging.String("event", string(event)),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

func failureHint(status queue.Status) string {
	if status == queue.StatusReview {
		return "fix the input or configuration, then run 'scenetrack jobs retry'"
	}
	return "run 'scenetrack jobs retry' once the cause is resolved"
}
