package stage

import (
	"context"

	"scenetrack/internal/queue"
)

// ProgressFunc is told when a job enters a new in-flight status.
type ProgressFunc func(ctx context.Context, status queue.Status)

// Handler describes the contract the workflow manager needs from the
// analysis pipeline. Execute records its outcome on the job; the manager
// persists it.
type Handler interface {
	Execute(ctx context.Context, job *queue.Job, progress ProgressFunc) error
	HealthCheck(ctx context.Context) Health
}

// Report calls progress when it is set.
func (p ProgressFunc) Report(ctx context.Context, status queue.Status) {
	if p != nil {
		p(ctx, status)
	}
}
