package queue

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

var jobColumns = strings.Join(jobColumnNames, ", ")

// timeLayout keeps a fixed fractional width so stored timestamps compare
// correctly as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job              Job
		videoName        sql.NullString
		contentType      sql.NullString
		statusStr        string
		requestID        sql.NullString
		trackURL         sql.NullString
		emojiTrackURL    sql.NullString
		resultMessage    sql.NullString
		errorMessage     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&job.ID,
		&job.VideoID,
		&videoName,
		&contentType,
		&job.Size,
		&job.SourceURL,
		&statusStr,
		&requestID,
		&job.SceneCount,
		&job.SkippedCount,
		&trackURL,
		&emojiTrackURL,
		&resultMessage,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	job.VideoName = videoName.String
	job.ContentType = contentType.String
	job.Status = Status(statusStr)
	job.RequestID = requestID.String
	job.TrackURL = trackURL.String
	job.EmojiTrackURL = emojiTrackURL.String
	job.ResultMessage = resultMessage.String
	job.ErrorMessage = errorMessage.String

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			job.LastHeartbeat = &heartbeat
		}
	}
	return &job, nil
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	defer rows.Close()
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return timestamp(*value)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}

func statusArgs(statuses []Status) []any {
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	return args
}

func idArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
