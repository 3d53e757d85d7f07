// Package watcher turns new video files in the input bucket into analysis
// jobs.
//
// It watches the bucket directory tree with fsnotify, ignores hidden and
// temporary files plus anything without a configured video extension, and
// debounces bursts of write events so a file is reported once after it stops
// changing.
package watcher
