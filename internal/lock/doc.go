// Package lock provides non-blocking exclusive locks backed by flock(2) lock
// files. The analysis pipeline holds one per video so a video is never
// analysed by two runs at once; the daemon uses TryFile for its
// single-instance lock.
package lock
