package clipboard

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"time"

	"nexusclip/internal/config"
)

type environment struct {
	goos     string
	getenv   func(string) string
	lookPath func(string) (string, error)
}

func hostEnvironment() environment {
	return environment{goos: runtime.GOOS, getenv: os.Getenv, lookPath: exec.LookPath}
}

func (e environment) has(binary string) bool {
	_, err := e.lookPath(binary)
	return err == nil
}

func (e environment) wayland() bool { return e.getenv("WAYLAND_DISPLAY") != "" }

func (e environment) x11() bool { return e.getenv("DISPLAY") != "" }

// ResolveBackend maps the configured listener backend to the concrete backend
// used on this host. "auto" prefers native notifications, then wl-paste, then
// clipnotify, and finally polling.
func ResolveBackend(requested string) string {
	return hostEnvironment().resolve(requested)
}

func (e environment) resolve(requested string) string {
	if requested != config.BackendAuto && requested != "" {
		return requested
	}
	switch {
	case e.goos == "windows":
		return config.BackendNative
	case e.wayland() && e.has("wl-paste"):
		return config.BackendWlPaste
	case e.x11() && e.has("clipnotify"):
		return config.BackendClipnotify
	default:
		return config.BackendPoll
	}
}

// sourceCommand picks the helper used to read clipboard text off Windows.
func (e environment) sourceCommand() []string {
	var candidates [][]string
	if e.wayland() {
		candidates = append(candidates, []string{"wl-paste", "--no-newline", "--type", "text"})
	}
	if e.x11() {
		candidates = append(candidates,
			[]string{"xclip", "-selection", "clipboard", "-out"},
			[]string{"xsel", "--clipboard", "--output"},
		)
	}
	if e.goos == "darwin" {
		candidates = append(candidates, []string{"pbpaste"})
	}
	for _, argv := range candidates {
		if e.has(argv[0]) {
			return argv
		}
	}
	return nil
}

// NewSource returns the clipboard reader for this host.
func NewSource(cfg *config.Config) (Source, error) {
	return hostEnvironment().newSource(cfg)
}

func (e environment) newSource(cfg *config.Config) (Source, error) {
	if e.goos == "windows" {
		return newNativeSource()
	}
	argv := e.sourceCommand()
	if argv == nil {
		return nil, fmt.Errorf("%w: install wl-clipboard, xclip, or xsel", ErrUnavailable)
	}
	return NewCommandSource(argv, time.Duration(cfg.Listener.CommandTimeoutMS)*time.Millisecond), nil
}

// NewListener builds the change listener for the configured backend and
// returns the resolved backend name.
func NewListener(cfg *config.Config, source Source, logger *slog.Logger) (Listener, string, error) {
	return hostEnvironment().newListener(cfg, source, logger)
}

func (e environment) newListener(cfg *config.Config, source Source, logger *slog.Logger) (Listener, string, error) {
	backend := e.resolve(cfg.Listener.Backend)
	switch backend {
	case config.BackendNative:
		l, err := newNativeListener(logger)
		return l, backend, err
	case config.BackendWlPaste:
		return NewWlPasteListener(logger), backend, nil
	case config.BackendClipnotify:
		return NewClipnotifyListener(logger), backend, nil
	case config.BackendPoll:
		interval := time.Duration(cfg.Listener.PollIntervalMS) * time.Millisecond
		return NewPollListener(source, interval, logger), backend, nil
	default:
		return nil, backend, fmt.Errorf("unsupported clipboard backend %q", backend)
	}
}
