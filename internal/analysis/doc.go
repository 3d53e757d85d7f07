// Package analysis runs a stored video through annotation, scene
// consolidation and track publishing.
//
// Pipeline.Run serves synchronous push requests and Pipeline.Execute serves
// queued jobs. Both take the per-video lock, submit the video to the
// annotation service, fold the shot labels and explicit-content frames into
// scenes, then write the label track and the optional emoji track below
// "<video id>/" in the processing bucket. When archiving is enabled the source
// moves to the archive bucket afterwards.
//
// Failures carry a services marker so callers can map them to job states, and
// the returned Result always names the video and describes the outcome.
package analysis
