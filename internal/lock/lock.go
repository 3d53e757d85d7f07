package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"scenetrack/internal/services"
)

// ErrLocked reports that another run holds the lock.
var ErrLocked = fmt.Errorf("%w: lock held by another run", services.ErrLocked)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._\-]+`)

// SanitizeID maps an identifier onto a safe file name. Base64 hashes keep
// their information because '+' and '/' map to distinct characters.
func SanitizeID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.NewReplacer("+", "-", "/", "_", "=", "").Replace(id)
	id = unsafeChars.ReplaceAllString(id, "_")
	id = strings.Trim(id, ".")
	if id == "" {
		return "_"
	}
	return id
}

// Locker hands out per-key exclusive locks backed by lock files in a
// directory. Locks are advisory and shared across processes.
type Locker struct {
	dir string

	mu   sync.Mutex
	held map[string]*Handle
}

// NewLocker returns a locker storing lock files in dir.
func NewLocker(dir string) *Locker {
	return &Locker{dir: dir, held: make(map[string]*Handle)}
}

// Path returns the lock file used for key.
func (l *Locker) Path(key string) string {
	return filepath.Join(l.dir, SanitizeID(key)+".lock")
}

// Acquire takes the lock for key without blocking. It returns ErrLocked when
// another holder, in this process or another, has it.
func (l *Locker) Acquire(key string) (*Handle, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	path := l.Path(key)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[path]; ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, key)
	}
	h, err := TryFile(path)
	if err != nil {
		return nil, err
	}
	h.key = key
	h.release = func() {
		l.mu.Lock()
		delete(l.held, path)
		l.mu.Unlock()
	}
	l.held[path] = h
	return h, nil
}

// Held reports whether key is locked by anyone.
func (l *Locker) Held(key string) (bool, error) {
	path := l.Path(key)
	l.mu.Lock()
	_, mine := l.held[path]
	l.mu.Unlock()
	if mine {
		return true, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	probe := flock.New(path)
	defer probe.Close()
	ok, err := probe.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe lock %s: %w", path, err)
	}
	if ok {
		_ = probe.Unlock()
		return false, nil
	}
	return true, nil
}

// Handle is a held lock.
type Handle struct {
	key     string
	path    string
	lock    *flock.Flock
	once    sync.Once
	release func()
	err     error
}

// TryFile takes an exclusive lock on path without blocking. It is also used
// for the daemon's single-instance lock.
func TryFile(path string) (*Handle, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return &Handle{path: path, lock: fl}, nil
}

// Key returns the key the handle was acquired for, if any.
func (h *Handle) Key() string { return h.key }

// Path returns the lock file path.
func (h *Handle) Path() string { return h.path }

// Release unlocks the handle. It is safe to call more than once.
//
// The lock file stays on disk. Unlinking it would let a run that opened the
// old file and a run that created a new one at the same path both hold it.
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	h.once.Do(func() {
		if err := h.lock.Unlock(); err != nil {
			h.err = fmt.Errorf("release lock: %w", err)
		}
		if h.release != nil {
			h.release()
		}
	})
	return h.err
}
