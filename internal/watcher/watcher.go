package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"scenetrack/internal/logging"
)

// OnFile is called once a new file has settled.
type OnFile func(ctx context.Context, path string)

// Options selects what is watched.
type Options struct {
	Dir        string
	Extensions []string
	Debounce   time.Duration
}

// Watcher monitors a bucket directory for new video files.
type Watcher struct {
	opts     Options
	exts     map[string]struct{}
	callback OnFile
	logger   *slog.Logger
	watcher  *fsnotify.Watcher

	mu       sync.Mutex
	watched  map[string]struct{}
	debounce map[string]*time.Timer
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a watcher for opts.Dir. Start begins delivering events.
func New(opts Options, cb OnFile, logger *slog.Logger) (*Watcher, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("watcher: directory is required")
	}
	if cb == nil {
		return nil, errors.New("watcher: callback is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}
	return &Watcher{
		opts:     opts,
		exts:     exts,
		callback: cb,
		logger:   logging.NewComponentLogger(logger, "watcher"),
		watcher:  fw,
		watched:  make(map[string]struct{}),
		debounce: make(map[string]*time.Timer),
	}, nil
}

// Start adds the directory tree and processes events until ctx ends or Stop
// is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.opts.Dir); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.eventLoop(runCtx)
	w.logger.Info("input watcher started",
		logging.String("dir", w.opts.Dir),
		logging.Int("paths", w.watchedCount()),
		logging.String(logging.FieldEventType, "watcher_start"),
	)
	return nil
}

// Stop ends event processing and drops pending debounced events.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	for name, timer := range w.debounce {
		timer.Stop()
		delete(w.debounce, name)
	}
	w.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	_ = w.watcher.Close()
}

func (w *Watcher) watchedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watched)
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			if path == root {
				return err
			}
			return nil
		}
		w.mu.Lock()
		w.watched[path] = struct{}{}
		w.mu.Unlock()
		return nil
	})
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "watcher_error"),
			)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".tmp") || strings.HasSuffix(base, ".part") {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", logging.String("dir", event.Name), logging.Error(err))
			}
			return
		}
	}

	if !w.Matches(event.Name) {
		return
	}

	name := event.Name
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.debounce[name]; ok {
		timer.Stop()
	}
	w.debounce[name] = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		delete(w.debounce, name)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if info, err := os.Stat(name); err != nil || !info.Mode().IsRegular() {
			return
		}
		w.callback(ctx, name)
	})
}

// Matches reports whether path has a watched video extension.
func (w *Watcher) Matches(path string) bool {
	if len(w.exts) == 0 {
		return true
	}
	_, ok := w.exts[strings.ToLower(filepath.Ext(path))]
	return ok
}
