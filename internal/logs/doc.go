// Package logs reads the daemon log file for the CLI.
//
// Tail returns the last lines of a file, optionally filtered, and the offset
// to resume from. Follow polls from an offset and hands new lines to a
// callback until the context ends; it survives the file being replaced by a
// new run's log through the current-log symlink.
package logs
