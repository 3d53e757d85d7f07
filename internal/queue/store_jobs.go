package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// NewJob inserts a pending job.
func (s *Store) NewJob(ctx context.Context, params NewJobParams) (*Job, error) {
	if strings.TrimSpace(params.VideoID) == "" {
		return nil, errors.New("insert job: video id is required")
	}
	if strings.TrimSpace(params.SourceURL) == "" {
		return nil, errors.New("insert job: source url is required")
	}
	now := timestamp(time.Now())

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            video_id, video_name, content_type, size, source_url, status,
            request_id, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		params.VideoID,
		nullableString(params.VideoName),
		nullableString(params.ContentType),
		params.Size,
		params.SourceURL,
		StatusPending,
		nullableString(params.RequestID),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. A missing job yields nil, nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ActiveForVideo returns the oldest pending or in-flight job for a video.
func (s *Store) ActiveForVideo(ctx context.Context, videoID string) (*Job, error) {
	active := append([]Status{StatusPending}, processingStatuses...)
	args := append([]any{videoID}, statusArgs(active)...)
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE video_id = ? AND status IN (`+makePlaceholders(len(active))+`) ORDER BY id LIMIT 1`,
		args...,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active job for video: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET video_name = ?, content_type = ?, size = ?, source_url = ?, status = ?,
             request_id = ?, scene_count = ?, skipped_count = ?, track_url = ?,
             emoji_track_url = ?, result_message = ?, error_message = ?,
             updated_at = ?, last_heartbeat = ?
         WHERE id = ?`,
		nullableString(job.VideoName),
		nullableString(job.ContentType),
		job.Size,
		job.SourceURL,
		job.Status,
		nullableString(job.RequestID),
		job.SceneCount,
		job.SkippedCount,
		nullableString(job.TrackURL),
		nullableString(job.EmojiTrackURL),
		nullableString(job.ResultMessage),
		nullableString(job.ErrorMessage),
		timestamp(job.UpdatedAt),
		nullableTime(job.LastHeartbeat),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// List returns jobs filtered by status set (or all jobs when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		args = statusArgs(statuses)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return scanJobs(rows)
}

// NextPending claims the oldest pending job by moving it to StatusAnnotating
// with a fresh heartbeat. It returns nil when nothing is pending.
func (s *Store) NextPending(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	for {
		var id int64
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM jobs WHERE status = ? ORDER BY created_at, id LIMIT 1`, StatusPending,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("next pending job: %w", err)
		}

		now := timestamp(time.Now())
		res, err := s.execWithRetry(ctx,
			`UPDATE jobs SET status = ?, last_heartbeat = ?, updated_at = ?, error_message = NULL
             WHERE id = ? AND status = ?`,
			StatusAnnotating, now, now, id, StatusPending,
		)
		if err != nil {
			return nil, fmt.Errorf("claim job %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return s.GetByID(ctx, id)
		}
		// Another worker claimed it first; look again.
	}
}

// Remove deletes the given jobs.
func (s *Store) Remove(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id IN (`+makePlaceholders(len(ids))+`)`, idArgs(ids)...)
	if err != nil {
		return 0, fmt.Errorf("remove jobs: %w", err)
	}
	return res.RowsAffected()
}
