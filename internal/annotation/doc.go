// Package annotation models the label and explicit-content annotations
// produced by the remote video annotation service and provides the client
// that requests them.
//
// The wire types follow the service's JSON encoding: offsets arrive either as
// "12.5s" strings or {seconds, nanos} objects, and likelihoods as enum names.
// Decode reads saved responses (bare, wrapped in a finished operation, or a
// single results object) for offline consolidation.
//
// Client submits videos:annotate, then polls the returned long-running
// operation until it finishes. Transient HTTP failures are retried through the
// shared retry policy.
package annotation
