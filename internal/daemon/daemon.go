package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"songline/internal/config"
	"songline/internal/lifecycle"
	"songline/internal/logging"
	"songline/internal/metrics"
	"songline/internal/notifications"
	"songline/internal/queue"
)

// Deps are the collaborators the daemon serves.
type Deps struct {
	Store       *queue.Store
	Coordinator *lifecycle.Coordinator
	Notifier    notifications.Service
	Metrics     *metrics.Recorder
	Stream      *logging.StreamHub
	Logger      *slog.Logger
	// Matching and Directory report which optional integrations are wired.
	Matching  bool
	Directory bool
}

// Daemon owns the coordinator goroutine, the HTTP API and the single-instance
// lock.
type Daemon struct {
	cfg      *config.Config
	deps     Deps
	logger   *slog.Logger
	lockPath string
	lock     *flock.Flock
	api      *apiServer

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	runDone chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	APIAddress   string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, deps Deps) (*Daemon, error) {
	if cfg == nil || deps.Store == nil || deps.Coordinator == nil {
		return nil, errors.New("daemon requires config, store, and coordinator")
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewNoop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		deps:     deps,
		logger:   logging.NewComponentLogger(deps.Logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, deps.Logger)
	return d, nil
}

// Start acquires the lock, restores persisted state, starts the coordinator
// and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another songline daemon instance is already running")
	}

	if err := d.deps.Coordinator.Restore(ctx); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("restore state: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.deps.Coordinator.Run(runCtx)
	}()

	if err := d.api.start(runCtx); err != nil {
		cancel()
		<-done
		_ = d.lock.Unlock()
		return err
	}

	d.cancel = cancel
	d.runDone = done
	d.running.Store(true)
	d.logger.Info("songline daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
		logging.String("database", d.deps.Store.Path()),
	)
	return nil
}

// Stop stops serving, drains the coordinator and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.runDone != nil {
		<-d.runDone
		d.runDone = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file manually if the next start fails"),
		)
	}
	d.running.Store(false)
	d.logger.Info("songline daemon stopped")
}

// Close stops the daemon and releases its resources.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if err := d.deps.Notifier.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := d.deps.Store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.deps.Store.Path(),
		LockFilePath: d.lockPath,
		APIAddress:   d.api.address(),
	}
}

// APIAddress returns the bound API address, or "" before Start.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// TestNotification publishes a test event through every configured sink.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" && !d.cfg.RealtimeEnabled() {
		return false, "no notification sinks configured", nil
	}
	if err := d.deps.Notifier.Publish(ctx, notifications.EventTest, notifications.Payload{"source": "test-notify"}); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
