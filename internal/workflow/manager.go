package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"scenetrack/internal/config"
	"scenetrack/internal/logging"
	"scenetrack/internal/notifications"
	"scenetrack/internal/queue"
	"scenetrack/internal/stage"
)

const minPollInterval = 100 * time.Millisecond

// Manager coordinates queue processing using the registered stage handler.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	handler      stage.Handler
	notifier     notifications.Service
	logger       *slog.Logger
	pollInterval time.Duration
	retryDelay   time.Duration

	heartbeat *HeartbeatMonitor
	wake      chan struct{}

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob *queue.Job
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, handler stage.Handler, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "workflow")
	return &Manager{
		cfg:          cfg,
		store:        store,
		handler:      handler,
		notifier:     notifications.NewService(cfg),
		logger:       logger,
		pollInterval: seconds(cfg.Workflow.QueuePollInterval, minPollInterval),
		retryDelay:   seconds(cfg.Workflow.ErrorRetryInterval, minPollInterval),
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		wake: make(chan struct{}, 1),
	}
}

// SetNotifier replaces the notification service built from configuration.
func (m *Manager) SetNotifier(n notifications.Service) {
	if n != nil {
		m.notifier = n
	}
}

// Store returns the queue the manager drains.
func (m *Manager) Store() *queue.Store { return m.store }

// Wake interrupts the poll wait so new work is picked up immediately.
func (m *Manager) Wake() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func seconds(value int, floor time.Duration) time.Duration {
	d := time.Duration(value) * time.Second
	if d < floor {
		return floor
	}
	return d
}
