package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"barista/internal/config"
	"barista/internal/logging"
	"barista/internal/queue"
	"barista/internal/workflow"
)

// Daemon runs the brew pipeline in the background and enforces
// single-instance execution with a file lock. Two daemons sharing one
// database would race each other for pending brews.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status describes daemon runtime information.
type Status struct {
	Running      bool
	QueueDBPath  string
	LockFilePath string
	Health       workflow.Health
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "baristad.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the workflow manager.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another baristad instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start workflow: %w", err)
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("barista daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("barista daemon stopped")
}

// Close stops the daemon and closes the queue store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Running reports whether the daemon has been started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status summarizes the daemon and its pipeline.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		Health:       d.workflow.Health(ctx),
	}
}
