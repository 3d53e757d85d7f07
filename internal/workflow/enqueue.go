package workflow

import (
	"context"

	"scenetrack/internal/logging"
	"scenetrack/internal/queue"
	"scenetrack/internal/services"
	"scenetrack/internal/trigger"
)

// Enqueue adds a job for video unless one is already pending or in flight,
// in which case the existing job is returned with created false.
func Enqueue(ctx context.Context, store *queue.Store, video trigger.Video, requestID string) (job *queue.Job, created bool, err error) {
	if err := video.Validate(); err != nil {
		return nil, false, err
	}
	existing, err := store.ActiveForVideo(ctx, video.ID)
	if err != nil {
		return nil, false, services.Wrap(services.ErrTransient, "workflow", "enqueue", "Could not check for an active job", err)
	}
	if existing != nil {
		return existing, false, nil
	}
	job, err = store.NewJob(ctx, queue.NewJobParams{
		VideoID:     video.ID,
		VideoName:   video.Name,
		ContentType: video.ContentType,
		Size:        video.SizeBytes(),
		SourceURL:   video.Link,
		RequestID:   requestID,
	})
	if err != nil {
		return nil, false, services.Wrap(services.ErrTransient, "workflow", "enqueue", "Could not store job", err)
	}
	return job, true, nil
}

// Enqueue adds a job and wakes the processing loop.
func (m *Manager) Enqueue(ctx context.Context, video trigger.Video, requestID string) (*queue.Job, bool, error) {
	job, created, err := Enqueue(ctx, m.store, video, requestID)
	if err != nil {
		return nil, false, err
	}
	if created {
		logging.WithContext(services.WithJobID(ctx, job.ID), m.logger).Info("job queued",
			logging.String(logging.FieldEventType, "job_queued"),
			logging.String(logging.FieldVideoID, job.VideoID),
			logging.String("source", job.SourceURL),
		)
		m.Wake()
	}
	return job, created, nil
}
