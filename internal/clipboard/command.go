package clipboard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"nexusclip/internal/logging"
)

// CommandSource reads clipboard text by running a helper such as wl-paste.
type CommandSource struct {
	argv    []string
	timeout time.Duration
}

// NewCommandSource runs argv for every read. A read that outlives timeout
// fails with ErrTimeout.
func NewCommandSource(argv []string, timeout time.Duration) *CommandSource {
	return &CommandSource{argv: append([]string(nil), argv...), timeout: timeout}
}

// Command returns the helper invocation.
func (s *CommandSource) Command() []string {
	return append([]string(nil), s.argv...)
}

// ReadText runs the helper once and returns its decoded output.
func (s *CommandSource) ReadText(ctx context.Context) (string, error) {
	if len(s.argv) == 0 {
		return "", ErrUnavailable
	}
	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(runCtx, s.argv[0], s.argv[1:]...)
	cmd.WaitDelay = commandWaitDelay
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s after %s: %w", s.argv[0], s.timeout, ErrTimeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(out) == 0 {
			return "", ErrNoText
		}
		return "", fmt.Errorf("run %s: %w", s.argv[0], err)
	}
	if len(out) == 0 {
		return "", ErrNoText
	}
	return decodeUTF8(out), nil
}

// CommandListener fires its callback whenever a watcher helper reports a
// clipboard change. The watcher is restarted after unexpected exits.
type CommandListener struct {
	backend string
	binary  string
	watch   func(ctx context.Context, notify func()) error
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

const (
	watcherRestartDelay = time.Second
	commandWaitDelay    = 200 * time.Millisecond
)

// NewWlPasteListener watches the Wayland clipboard with `wl-paste --watch`.
// Each change makes wl-paste run echo, which produces one line per change.
func NewWlPasteListener(logger *slog.Logger) *CommandListener {
	return &CommandListener{
		backend: "wl-paste",
		binary:  "wl-paste",
		logger:  logging.NewComponentLogger(logger, "clipboard-listener"),
		watch: func(ctx context.Context, notify func()) error {
			return watchLines(ctx, notify, "wl-paste", "--watch", "echo")
		},
	}
}

// NewClipnotifyListener watches the X11 clipboard by running clipnotify in a
// loop. clipnotify exits once per selection change.
func NewClipnotifyListener(logger *slog.Logger) *CommandListener {
	return &CommandListener{
		backend: "clipnotify",
		binary:  "clipnotify",
		logger:  logging.NewComponentLogger(logger, "clipboard-listener"),
		watch: func(ctx context.Context, notify func()) error {
			for {
				cmd := exec.CommandContext(ctx, "clipnotify", "-s", "clipboard")
				if err := cmd.Run(); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return fmt.Errorf("clipnotify: %w", err)
				}
				notify()
			}
		},
	}
}

func watchLines(ctx context.Context, notify func(), name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = commandWaitDelay
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%s stdout: %w", name, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		notify()
	}
	err = cmd.Wait()
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s exited: %w", name, err)
	}
	return fmt.Errorf("%s exited", name)
}

// Backend names the watcher helper.
func (l *CommandListener) Backend() string {
	return l.backend
}

// Register starts the watcher. It fails when the helper is not installed.
func (l *CommandListener) Register(callback func()) error {
	if callback == nil {
		return errors.New("clipboard listener callback is nil")
	}
	if _, err := exec.LookPath(l.binary); err != nil {
		return fmt.Errorf("%s not found: %w", l.binary, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return errors.New("clipboard listener already registered")
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.loop(ctx, callback, l.done)
	l.logger.Debug("clipboard watcher started", logging.String(logging.FieldBackend, l.backend))
	return nil
}

func (l *CommandListener) loop(ctx context.Context, callback func(), done chan struct{}) {
	defer close(done)
	for {
		err := l.watch(ctx, callback)
		if ctx.Err() != nil {
			return
		}
		logging.WarnWithContext(l.logger, "clipboard watcher stopped; restarting", "clipboard_watcher_restart",
			logging.String(logging.FieldBackend, l.backend),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "verify "+l.binary+" runs in this session"),
			logging.String(logging.FieldImpact, "clipboard changes are missed until the watcher recovers"),
		)
		if !sleep(ctx, watcherRestartDelay) {
			return
		}
	}
}

// Unregister stops the watcher and waits for it to exit.
func (l *CommandListener) Unregister() error {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
