// Package trigger decodes the notifications that start an analysis: Pub/Sub
// push envelopes carrying a video record, object-finalize storage events, and
// files discovered directly in the input bucket.
package trigger
