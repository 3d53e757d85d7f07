// Package preflight provides readiness checks for the directories and remote
// services scenetrack depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs every failed check so
//     misconfiguration is visible before the first job fails.
//   - The CLI "scenetrack status" command renders the same results as a table.
//
// Each check is gated by its config toggle; disabled features are reported
// as skipped rather than failed.
package preflight
