// Package daemon coordinates the long-running scenetrack process.
//
// It wires configuration, the job queue, the workflow manager, the input
// bucket watcher, and the HTTP API into a single lifecycle guarded by a
// flock-based single-instance lock. The HTTP API accepts Pub/Sub push
// requests (synchronously at "/" and queued under /api/jobs), storage
// finalize events, and exposes job inspection and retry.
//
// Keep orchestration logic here: analysis itself lives in the analysis
// package and queue semantics in workflow.
package daemon
