// Package workflow advances queued analysis jobs through the pipeline.
//
// The Manager polls the queue, claims the oldest pending job, and hands it to
// the stage handler while a heartbeat loop keeps the job's liveness timestamp
// fresh. Jobs whose heartbeat goes stale are returned to pending so a later
// poll picks them up again. Status transitions reported by the handler are
// persisted as they happen, and failures are classified with
// services.FailureStatus before the job is stored as failed or review.
//
// Enqueue is the single entry point for new work: the HTTP API and the input
// bucket watcher both call it, and it refuses duplicates while a job for the
// same video is still active.
package workflow
