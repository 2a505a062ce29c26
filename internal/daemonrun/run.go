package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"nexusclip/internal/capture"
	"nexusclip/internal/clipboard"
	"nexusclip/internal/config"
	"nexusclip/internal/daemon"
	"nexusclip/internal/inbox"
	"nexusclip/internal/ledger"
	"nexusclip/internal/logging"
	"nexusclip/internal/notifications"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the nexusclip daemon and blocks until the context is cancelled
// or the process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("nexusclip-%s.log", runID))

	logger, err := logging.NewFromConfig(cfg, logPath, logging.Options{
		Level:       opts.LogLevel,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update nexusclip.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "nexusclip-*.log", Exclude: []string{logPath}},
	)
	logHelperSnapshot(logger, cfg)

	d, err := build(cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "stop the other nexusclip instance or remove a stale lock file"),
		)
		return fmt.Errorf("start daemon: %w", err)
	}

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	<-signalCtx.Done()
	logger.Info("nexusclip daemon shutting down")
	return nil
}

// CaptureOnce reads the clipboard a single time and captures it when it is in
// scope. It fails with daemon.ErrInstanceRunning while a daemon holds the lock.
func CaptureOnce(ctx context.Context, cfg *config.Config, logger *slog.Logger) (capture.Outcome, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	d, err := build(cfg, logger)
	if err != nil {
		return capture.OutcomeNoText, err
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Debug("daemon close failed", logging.Error(err))
		}
	}()
	return d.CaptureOnce(ctx)
}

// build wires the clipboard, storage, and notification components into a daemon.
func build(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	source, err := clipboard.NewSource(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "clipboard source unavailable", "clipboard_source_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install wl-clipboard, xclip, or xsel"),
			logging.String(logging.FieldImpact, "clipboard content cannot be read"),
		)
		source = clipboard.Unavailable(err)
	}

	listener, backend, err := clipboard.NewListener(cfg, source, logger)
	if err != nil {
		logging.WarnWithContext(logger, "clipboard listener unavailable", "listener_unavailable",
			logging.Error(err),
			logging.String(logging.FieldBackend, backend),
			logging.String(logging.FieldErrorHint, "choose a different listener.backend"),
			logging.String(logging.FieldImpact, "clipboard changes will not be captured"),
		)
		listener = nil
	}

	pipeline := capture.New(
		clipboard.NewReader(source, logger),
		inbox.NewWriter(cfg.InboxDir()),
		ledger.New(cfg.LedgerDir()),
		notifications.NewService(cfg),
		logger,
	)
	d, err := daemon.New(cfg, pipeline, listener, backend, logger)
	if err != nil {
		return nil, fmt.Errorf("create daemon: %w", err)
	}
	return d, nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "nexusclip.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// ReadPID returns the pid recorded by a running daemon.
func ReadPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(string(trimNewline(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func logHelperSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("clipboard helper snapshot",
		logging.String(logging.FieldEventType, "helper_snapshot"),
		logging.String("configured_backend", cfg.Listener.Backend),
		logging.String(logging.FieldBackend, clipboard.ResolveBackend(cfg.Listener.Backend)),
		logging.Bool("wl_paste_available", binaryAvailable("wl-paste")),
		logging.Bool("xclip_available", binaryAvailable("xclip")),
		logging.Bool("xsel_available", binaryAvailable("xsel")),
		logging.Bool("clipnotify_available", binaryAvailable("clipnotify")),
		logging.String("root_dir", cfg.Paths.RootDir),
	)
}

func binaryAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
