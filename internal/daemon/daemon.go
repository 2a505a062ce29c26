package daemon

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"nexusclip/internal/capture"
	"nexusclip/internal/clipboard"
	"nexusclip/internal/config"
	"nexusclip/internal/logging"
	"nexusclip/internal/notifications"
)

// ErrInstanceRunning reports that another process holds the daemon lock.
var ErrInstanceRunning = errors.New("another nexusclip instance is already running")

// Daemon runs the capture pipeline and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	pipeline *capture.Pipeline
	listener clipboard.Listener
	backend  string

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	listening atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Listening    bool
	Backend      string
	RootDir      string
	InboxDir     string
	LedgerDir    string
	LockFilePath string
	State        capture.State
	Stats        capture.Stats
}

// New constructs a daemon. A nil listener leaves the daemon without change
// notifications; Notify still drives captures.
func New(cfg *config.Config, pipeline *capture.Pipeline, listener clipboard.Listener, backend string, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || pipeline == nil {
		return nil, errors.New("daemon requires config and capture pipeline")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		pipeline: pipeline,
		listener: listener,
		backend:  backend,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, starts the capture worker, and registers
// the clipboard listener.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrInstanceRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := d.pipeline.Run(runCtx); err != nil {
			logging.ErrorWithContext(d.logger, "capture worker exited", "capture_worker_failed", logging.Error(err))
		}
	}()

	d.mu.Lock()
	d.cancel = cancel
	d.done = done
	d.mu.Unlock()
	d.running.Store(true)

	d.registerListener()
	d.logger.Info("nexusclip daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldBackend, d.backend),
		logging.Bool("listening", d.listening.Load()),
	)
	return nil
}

// CaptureOnce reads the clipboard a single time under the daemon lock
// without starting the worker or the listener.
func (d *Daemon) CaptureOnce(ctx context.Context) (capture.Outcome, error) {
	if d.running.Load() {
		return capture.OutcomeNoText, errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return capture.OutcomeNoText, err
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return capture.OutcomeNoText, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return capture.OutcomeNoText, ErrInstanceRunning
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Debug("lock release failed", logging.Error(err))
		}
	}()

	outcome, err := d.pipeline.CaptureOnce(ctx)
	if err != nil {
		return outcome, err
	}
	d.logger.Debug("manual capture finished", logging.String("outcome", outcome.String()))
	return outcome, nil
}

func (d *Daemon) registerListener() {
	if d.listener == nil {
		logging.WarnWithContext(d.logger, "no clipboard listener available", "listener_unavailable",
			logging.String(logging.FieldBackend, d.backend),
			logging.String(logging.FieldErrorHint, "set listener.backend or install a clipboard helper"),
			logging.String(logging.FieldImpact, "clipboard changes will not be captured"),
		)
		return
	}
	if err := d.listener.Register(d.pipeline.Notify); err != nil {
		logging.WarnWithContext(d.logger, "clipboard listener registration failed", "listener_register_failed",
			logging.Error(err),
			logging.String(logging.FieldBackend, d.backend),
			logging.String(logging.FieldErrorHint, "try listener.backend = \"poll\""),
			logging.String(logging.FieldImpact, "clipboard changes will not be captured"),
		)
		return
	}
	d.listening.Store(true)
}

// Stop unregisters the listener, stops the worker, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.listening.Load() {
		if err := d.listener.Unregister(); err != nil {
			d.logger.Debug("clipboard listener unregister failed", logging.Error(err))
		}
		d.listening.Store(false)
	}

	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("nexusclip daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Notify requests a capture cycle as if the clipboard had changed.
func (d *Daemon) Notify() {
	d.pipeline.Notify()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		Listening:    d.listening.Load(),
		Backend:      d.backend,
		RootDir:      d.cfg.Paths.RootDir,
		InboxDir:     d.cfg.InboxDir(),
		LedgerDir:    d.cfg.LedgerDir(),
		LockFilePath: d.lockPath,
		State:        d.pipeline.State(),
		Stats:        d.pipeline.Stats(),
	}
}

// LockHeld reports whether another process holds the daemon lock.
func LockHeld(cfg *config.Config) (bool, error) {
	if _, err := os.Stat(cfg.LockPath()); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe lock: %w", err)
	}
	if !ok {
		return true, nil
	}
	_ = lock.Unlock()
	return false, nil
}

// TestNotification triggers a test notification using the current configuration.
func TestNotification(ctx context.Context, cfg *config.Config) (bool, string, error) {
	if cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
