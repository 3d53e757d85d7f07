package workflow

import (
	"context"

	"scenetrack/internal/logging"
	"scenetrack/internal/queue"
	"scenetrack/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running    bool                 `json:"running"`
	LastError  string               `json:"lastError,omitempty"`
	LastJob    *queue.Job           `json:"lastJob,omitempty"`
	QueueStats map[queue.Status]int `json:"queueStats"`
	Health     stage.Health         `json:"health"`
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	var lastJob *queue.Job
	if m.lastJob != nil {
		copy := *m.lastJob
		lastJob = &copy
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	summary := StatusSummary{Running: running, LastJob: lastJob, QueueStats: stats}
	if m.handler != nil {
		summary.Health = m.handler.HealthCheck(ctx)
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *queue.Job) {
	m.mu.Lock()
	if job != nil {
		copy := *job
		m.lastJob = &copy
	} else {
		m.lastJob = nil
	}
	m.mu.Unlock()
}
