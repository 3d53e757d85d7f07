package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes size bytes to path, creating parent directories. The
// content repeats the file's base name, so files with different names hash
// differently and get different video ids. A size <= 0 writes one byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	seed := []byte(filepath.Base(path))
	data := bytes.Repeat(seed, int(size)/len(seed)+1)[:size]
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteBucketFile writes size bytes to name inside bucket below the storage
// root and returns the local path.
func WriteBucketFile(t testing.TB, root, bucket, name string, size int64) string {
	t.Helper()

	path := filepath.Join(root, bucket, filepath.FromSlash(name))
	WriteFile(t, path, size)
	return path
}
