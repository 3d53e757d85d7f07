package fileutil

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Digest identifies file content by size and SHA-256.
type Digest struct {
	Size   int64
	SHA256 string
}

// WriteAtomic streams r into a temp file next to path, syncs it, and renames
// it over path. Readers never observe a partially written file.
func WriteAtomic(path string, r io.Reader, mode os.FileMode) (Digest, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Digest{}, fmt.Errorf("create parent directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return Digest{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), r)
	if err != nil {
		cleanup()
		return Digest{}, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return Digest{}, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return Digest{}, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		_ = os.Remove(tmpPath)
		return Digest{}, fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return Digest{}, fmt.Errorf("rename into place: %w", err)
	}
	return Digest{Size: written, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}

// CopyVerified streams src to dst and checks that the copy matches the source
// in size and SHA-256. dst is removed on mismatch.
func CopyVerified(src, dst string) (Digest, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return Digest{}, fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return Digest{}, err
	}
	defer in.Close()

	srcHasher := sha256.New()
	digest, err := WriteAtomic(dst, io.TeeReader(in, srcHasher), srcInfo.Mode().Perm())
	if err != nil {
		return Digest{}, err
	}
	if digest.Size != srcInfo.Size() {
		_ = os.Remove(dst)
		return Digest{}, fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), digest.Size)
	}
	if sum := hex.EncodeToString(srcHasher.Sum(nil)); sum != digest.SHA256 {
		_ = os.Remove(dst)
		return Digest{}, fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	return digest, nil
}

// MD5Base64 returns the base64 MD5 of a file, the form object stores report
// as md5Hash.
func MD5Base64(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	hasher := md5.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return base64.StdEncoding.EncodeToString(hasher.Sum(nil)), nil
}
