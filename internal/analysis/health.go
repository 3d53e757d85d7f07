package analysis

import (
	"context"
	"fmt"

	"scenetrack/internal/stage"
)

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheck reports whether the processing bucket exists and the remote
// services answer.
func (p *Pipeline) HealthCheck(ctx context.Context) stage.Health {
	bucket := p.cfg.Storage.ProcessingBucket
	if bucket != "" {
		if err := p.store.Bucket(ctx, bucket); err != nil {
			return stage.Unhealthy(stageName, fmt.Sprintf("processing bucket: %v", err))
		}
	}
	if checker, ok := p.annotator.(healthChecker); ok {
		if err := checker.HealthCheck(ctx); err != nil {
			return stage.Unhealthy(stageName, err.Error())
		}
	}
	if checker, ok := p.emoji.(healthChecker); ok && p.cfg.Tracks.EmojiEnabled {
		if err := checker.HealthCheck(ctx); err != nil {
			return stage.Unhealthy(stageName, err.Error())
		}
	}
	return stage.Healthy(stageName)
}
