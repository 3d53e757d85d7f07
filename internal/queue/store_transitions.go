package queue

import (
	"context"
	"fmt"
	"time"
)

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := timestamp(time.Now())
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now, now, id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStale returns in-flight jobs whose heartbeat is older than cutoff to
// pending. Annotation results are not persisted, so a reclaimed job restarts
// from the beginning.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	args := []any{StatusPending, timestamp(time.Now())}
	args = append(args, statusArgs(processingStatuses)...)
	args = append(args, timestamp(cutoff))
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (`+makePlaceholders(len(processingStatuses))+`)
           AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuckProcessing returns every in-flight job to pending. The daemon
// calls it on startup, when no job can legitimately be running.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	args := []any{StatusPending, timestamp(time.Now())}
	args = append(args, statusArgs(processingStatuses)...)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (`+makePlaceholders(len(processingStatuses))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed and review jobs back to pending. With no ids every
// such job is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	query := `UPDATE jobs
        SET status = ?, error_message = NULL, result_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (?, ?)`
	args := []any{StatusPending, timestamp(time.Now()), StatusFailed, StatusReview}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		args = append(args, idArgs(ids)...)
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed jobs: %w", err)
	}
	return res.RowsAffected()
}
