// Package storage implements object storage on the local filesystem.
//
// Each bucket is a directory under the configured root and each object a file
// inside it; object URLs use the gs://bucket/object form. Writes are atomic
// (temp file plus rename) and moves fall back to a verified copy across
// filesystems.
package storage
