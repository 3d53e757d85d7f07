// Package main hosts the scenetrack CLI entrypoint and command graph.
//
// The Cobra-based command tree covers offline consolidation of stored
// annotation results, one-shot analysis of a bucket object, job queue
// maintenance, readiness checks, configuration scaffolding, and running the
// daemon in the foreground. Job commands read the SQLite queue directly; the
// status command additionally asks a running daemon for its view.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it through dedicated commands or flags here.
package main
