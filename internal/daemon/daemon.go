package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"scenetrack/internal/analysis"
	"scenetrack/internal/config"
	"scenetrack/internal/lock"
	"scenetrack/internal/logging"
	"scenetrack/internal/queue"
	"scenetrack/internal/services"
	"scenetrack/internal/storage"
	"scenetrack/internal/trigger"
	"scenetrack/internal/watcher"
	"scenetrack/internal/workflow"
)

// Runner analyses a single video synchronously.
type Runner interface {
	Run(ctx context.Context, video trigger.Video) (analysis.Result, error)
}

// Daemon owns the background processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	runner   Runner
	buckets  *storage.Store

	lockPath string

	mu      sync.Mutex
	lock    *lock.Handle
	watcher *watcher.Watcher
	api     *apiServer
	cancel  context.CancelFunc
	started time.Time

	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
	Watching     string
	APIAddress   string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager, runner Runner, buckets *storage.Store) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil || runner == nil || buckets == nil {
		return nil, errors.New("daemon requires config, store, workflow manager, runner, and bucket store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		runner:   runner,
		buckets:  buckets,
		lockPath: cfg.DaemonLockPath(),
	}, nil
}

// Start acquires the daemon lock, then launches the workflow manager, the
// input watcher, and the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	handle, err := lock.TryFile(d.lockPath)
	if errors.Is(err, lock.ErrLocked) {
		return errors.New("another scenetrack daemon instance is already running")
	}
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	cleanup := func() {
		cancel()
		_ = handle.Release()
	}

	if err := d.workflow.Start(runCtx); err != nil {
		cleanup()
		return fmt.Errorf("start workflow: %w", err)
	}

	api, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.workflow.Stop()
		cleanup()
		return err
	}
	if err := api.start(runCtx); err != nil {
		d.workflow.Stop()
		cleanup()
		return err
	}

	w := d.startWatcher(runCtx)

	d.mu.Lock()
	d.lock = handle
	d.cancel = cancel
	d.api = api
	d.watcher = w
	d.started = time.Now()
	d.mu.Unlock()
	d.running.Store(true)

	d.logger.Info("scenetrack daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath),
		logging.String("api", api.address()),
	)
	return nil
}

func (d *Daemon) startWatcher(ctx context.Context) *watcher.Watcher {
	if !d.cfg.Watcher.Enabled {
		return nil
	}
	dir := d.inputDir()
	w, err := watcher.New(watcher.Options{
		Dir:        dir,
		Extensions: d.cfg.Watcher.Extensions,
		Debounce:   time.Duration(d.cfg.Watcher.DebounceSeconds) * time.Second,
	}, d.onFile, d.logger)
	if err == nil {
		err = w.Start(ctx)
	}
	if err != nil {
		logging.WarnWithContext(d.logger, "input watcher unavailable", "watcher_start_failed",
			logging.Error(err),
			logging.String("dir", dir),
			logging.String(logging.FieldErrorHint, "check storage.root_dir and storage.input_bucket"),
			logging.String(logging.FieldImpact, "new files must be submitted through the API or CLI"),
		)
		if w != nil {
			w.Stop()
		}
		return nil
	}
	return w
}

func (d *Daemon) inputDir() string {
	return filepath.Join(d.cfg.Storage.RootDir, d.cfg.Storage.InputBucket)
}

// onFile enqueues a video that appeared in the input bucket.
func (d *Daemon) onFile(ctx context.Context, path string) {
	video, err := trigger.VideoFromFile(d.buckets, path)
	if err != nil {
		logging.WarnWithContext(d.logger, "ignoring watched file", "watcher_file_rejected",
			logging.Error(err),
			logging.String("path", path),
		)
		return
	}
	requestID := uuid.NewString()
	ctx = services.WithRequestID(ctx, requestID)
	if _, _, err := d.workflow.Enqueue(ctx, video, requestID); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "failed to enqueue watched file", "watcher_enqueue_failed",
			logging.Error(err),
			logging.String("path", path),
			logging.String(logging.FieldImpact, "video will not be analysed until submitted again"),
		)
	}
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.mu.Lock()
	w, api, cancel, handle := d.watcher, d.api, d.cancel, d.lock
	d.watcher, d.api, d.cancel, d.lock = nil, nil, nil, nil
	d.mu.Unlock()

	if w != nil {
		w.Stop()
	}
	api.stop()
	if cancel != nil {
		cancel()
	}
	d.workflow.Stop()
	if err := handle.Release(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("scenetrack daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start has succeeded and Stop has not been called.
func (d *Daemon) Running() bool { return d.running.Load() }

// Uptime returns how long the daemon has been running.
func (d *Daemon) Uptime() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started.IsZero() {
		return 0
	}
	return time.Since(d.started)
}

// APIAddress returns the bound HTTP address, or "" when the API is off.
func (d *Daemon) APIAddress() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(ctx),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		APIAddress:   d.APIAddress(),
	}
	d.mu.Lock()
	if d.watcher != nil {
		status.Watching = d.inputDir()
	}
	d.mu.Unlock()
	return status
}

// Enqueue queues video for background analysis.
func (d *Daemon) Enqueue(ctx context.Context, video trigger.Video, requestID string) (*queue.Job, bool, error) {
	return d.workflow.Enqueue(ctx, video, requestID)
}

// Analyze runs video through the pipeline immediately.
func (d *Daemon) Analyze(ctx context.Context, video trigger.Video) (analysis.Result, error) {
	return d.runner.Run(ctx, video)
}

// RetryJobs moves failed or review jobs back to pending and wakes the
// workflow loop.
func (d *Daemon) RetryJobs(ctx context.Context, ids ...int64) (int64, error) {
	updated, err := d.store.RetryFailed(ctx, ids...)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		d.workflow.Wake()
	}
	return updated, nil
}
