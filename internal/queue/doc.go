// Package queue persists analysis jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages the database connection, schema initialization, stats
// queries, heartbeat tracking, stale-job recovery, and the status transitions
// the workflow manager performs. A job records the video it analyses, its
// progress through annotation, consolidation and publishing, and the links to
// the published tracks.
//
// The database is treated as transient storage for in-flight jobs rather than
// a long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
package queue
