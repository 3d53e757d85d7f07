package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"scenetrack/internal/fileutil"
)

// Scheme prefixes object URLs.
const Scheme = "gs://"

var (
	// ErrInvalidURL reports a URL the bucket name cannot be derived from.
	ErrInvalidURL = errors.New("invalid object url")
	// ErrBucketNotFound reports a missing bucket directory.
	ErrBucketNotFound = errors.New("bucket not found")
	// ErrObjectNotFound reports a missing object.
	ErrObjectNotFound = errors.New("object not found")
)

var (
	bucketPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)
	urlPattern    = regexp.MustCompile(`^gs://([a-z0-9\-]+)/(.+)$`)
)

// ObjectRef names an object inside a bucket.
type ObjectRef struct {
	Bucket string
	Name   string
}

func (r ObjectRef) String() string { return Scheme + r.Bucket + "/" + r.Name }

// ParseURL splits "gs://bucket/object". Bucket names are lower case letters,
// digits and dashes; object names must be relative and must not escape the
// bucket.
func ParseURL(raw string) (ObjectRef, error) {
	m := urlPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return ObjectRef{}, fmt.Errorf("%w: could not deduce bucket name from %q", ErrInvalidURL, raw)
	}
	name, err := cleanObjectName(m[2])
	if err != nil {
		return ObjectRef{}, fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}
	return ObjectRef{Bucket: m[1], Name: name}, nil
}

// ValidBucketName reports whether name is usable as a bucket.
func ValidBucketName(name string) bool { return bucketPattern.MatchString(name) }

func cleanObjectName(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return "", errors.New("object name must be a relative file path")
	}
	cleaned := path.Clean(name)
	if cleaned != name || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("object name must not contain relative segments")
	}
	return cleaned, nil
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	ObjectRef
	Size        int64
	ContentType string
	Updated     time.Time
	SelfLink    string
}

// Store keeps buckets as directories below a root directory. Content types are
// recorded in a sidecar file next to each object.
type Store struct {
	root string
}

// New returns a store rooted at root.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) bucketDir(bucket string) (string, error) {
	if !ValidBucketName(bucket) {
		return "", fmt.Errorf("%w: bucket %q", ErrInvalidURL, bucket)
	}
	return filepath.Join(s.root, bucket), nil
}

func (s *Store) objectPath(ref ObjectRef) (string, error) {
	dir, err := s.bucketDir(ref.Bucket)
	if err != nil {
		return "", err
	}
	name, err := cleanObjectName(ref.Name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidURL, ref, err)
	}
	return filepath.Join(dir, filepath.FromSlash(name)), nil
}

func contentTypePath(objectPath string) string {
	return filepath.Join(filepath.Dir(objectPath), "."+filepath.Base(objectPath)+".content-type")
}

// Path returns the local file backing ref.
func (s *Store) Path(ref ObjectRef) (string, error) {
	return s.objectPath(ref)
}

// Bucket verifies that the bucket exists.
func (s *Store) Bucket(ctx context.Context, bucket string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.bucketDir(bucket)
	if err != nil {
		return err
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: could not get bucket %q", ErrBucketNotFound, bucket)
	}
	return nil
}

// CreateBucket makes the bucket directory.
func (s *Store) CreateBucket(bucket string) error {
	dir, err := s.bucketDir(bucket)
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// Read returns an object's content.
func (s *Store) Read(ctx context.Context, ref ObjectRef) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.objectPath(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, ref)
	}
	return data, err
}

// Open streams an object's content.
func (s *Store) Open(ctx context.Context, ref ObjectRef) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.objectPath(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, ref)
	}
	return f, err
}

// Write stores data atomically under ref. The bucket must exist.
func (s *Store) Write(ctx context.Context, ref ObjectRef, data []byte, contentType string) (ObjectInfo, error) {
	if err := s.Bucket(ctx, ref.Bucket); err != nil {
		return ObjectInfo{}, err
	}
	p, err := s.objectPath(ref)
	if err != nil {
		return ObjectInfo{}, err
	}
	if _, err := fileutil.WriteAtomic(p, bytes.NewReader(data), 0o644); err != nil {
		return ObjectInfo{}, fmt.Errorf("write %s: %w", ref, err)
	}
	if err := s.setContentType(p, contentType); err != nil {
		return ObjectInfo{}, fmt.Errorf("write %s: %w", ref, err)
	}
	return s.Stat(ctx, ref)
}

func (s *Store) setContentType(objectPath, contentType string) error {
	sidecar := contentTypePath(objectPath)
	if strings.TrimSpace(contentType) == "" {
		if err := os.Remove(sidecar); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	_, err := fileutil.WriteAtomic(sidecar, strings.NewReader(contentType), 0o644)
	return err
}

// Stat describes an object.
func (s *Store) Stat(ctx context.Context, ref ObjectRef) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	p, err := s.objectPath(ref)
	if err != nil {
		return ObjectInfo{}, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, ref)
	}
	if err != nil {
		return ObjectInfo{}, err
	}
	if info.IsDir() {
		return ObjectInfo{}, fmt.Errorf("%w: %s is a directory", ErrObjectNotFound, ref)
	}
	out := ObjectInfo{
		ObjectRef: ref,
		Size:      info.Size(),
		Updated:   info.ModTime().UTC(),
		SelfLink:  s.SelfLink(ref),
	}
	if ct, err := os.ReadFile(contentTypePath(p)); err == nil {
		out.ContentType = strings.TrimSpace(string(ct))
	}
	return out, nil
}

// Exists reports whether an object is present.
func (s *Store) Exists(ctx context.Context, ref ObjectRef) (bool, error) {
	_, err := s.Stat(ctx, ref)
	if errors.Is(err, ErrObjectNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Delete removes an object. Deleting a missing object is not an error.
func (s *Store) Delete(ctx context.Context, ref ObjectRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.objectPath(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	_ = os.Remove(contentTypePath(p))
	return nil
}

// Move relocates an object, falling back to a verified copy when source and
// destination live on different filesystems.
func (s *Store) Move(ctx context.Context, from, to ObjectRef) (ObjectInfo, error) {
	if err := s.Bucket(ctx, to.Bucket); err != nil {
		return ObjectInfo{}, err
	}
	src, err := s.objectPath(from)
	if err != nil {
		return ObjectInfo{}, err
	}
	dst, err := s.objectPath(to)
	if err != nil {
		return ObjectInfo{}, err
	}
	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		return ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, from)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return ObjectInfo{}, fmt.Errorf("create target directory: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		var linkErr *os.LinkError
		if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
			return ObjectInfo{}, fmt.Errorf("move %s to %s: %w", from, to, err)
		}
		if _, err := fileutil.CopyVerified(src, dst); err != nil {
			return ObjectInfo{}, fmt.Errorf("copy %s across devices: %w", from, err)
		}
		if err := os.Remove(src); err != nil {
			return ObjectInfo{}, fmt.Errorf("remove source after copy: %w", err)
		}
	}
	if ct, err := os.ReadFile(contentTypePath(src)); err == nil {
		_ = s.setContentType(dst, string(ct))
		_ = os.Remove(contentTypePath(src))
	}
	return s.Stat(ctx, to)
}

// List returns the objects of a bucket in lexical order.
func (s *Store) List(ctx context.Context, bucket string) ([]ObjectInfo, error) {
	if err := s.Bucket(ctx, bucket); err != nil {
		return nil, err
	}
	dir, _ := s.bucketDir(bucket)
	var out []ObjectInfo
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		info, err := s.Stat(ctx, ObjectRef{Bucket: bucket, Name: filepath.ToSlash(rel)})
		if err != nil {
			return err
		}
		out = append(out, info)
		return nil
	})
	return out, err
}

// SelfLink returns the file URL of an object.
func (s *Store) SelfLink(ref ObjectRef) string {
	p, err := s.objectPath(ref)
	if err != nil {
		return ref.String()
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// Ref resolves a local path inside the store to its object reference.
func (s *Store) Ref(localPath string) (ObjectRef, error) {
	rel, err := filepath.Rel(s.root, localPath)
	if err != nil {
		return ObjectRef{}, err
	}
	rel = filepath.ToSlash(rel)
	bucket, name, ok := strings.Cut(rel, "/")
	if !ok || !ValidBucketName(bucket) {
		return ObjectRef{}, fmt.Errorf("%w: %s is not inside a bucket", ErrInvalidURL, localPath)
	}
	if _, err := cleanObjectName(name); err != nil {
		return ObjectRef{}, fmt.Errorf("%w: %s: %v", ErrInvalidURL, localPath, err)
	}
	return ObjectRef{Bucket: bucket, Name: name}, nil
}

// CheckAccess verifies the bucket directory is readable, writable and
// searchable by the current process.
func (s *Store) CheckAccess(bucket string) error {
	dir, err := s.bucketDir(bucket)
	if err != nil {
		return err
	}
	if err := unix.Access(dir, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("bucket %q (%s): %w", bucket, dir, err)
	}
	return nil
}
