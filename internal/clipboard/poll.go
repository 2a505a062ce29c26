package clipboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"nexusclip/internal/contenthash"
	"nexusclip/internal/logging"
)

// PollListener detects clipboard changes by fingerprinting a Source at a fixed
// interval. The first observation primes the baseline without firing.
type PollListener struct {
	source   Source
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPollListener polls source every interval.
func NewPollListener(source Source, interval time.Duration, logger *slog.Logger) *PollListener {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &PollListener{
		source:   source,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "clipboard-listener"),
	}
}

// Backend reports "poll".
func (l *PollListener) Backend() string {
	return "poll"
}

// Register starts polling.
func (l *PollListener) Register(callback func()) error {
	if callback == nil {
		return errors.New("clipboard listener callback is nil")
	}
	if l.source == nil {
		return ErrUnavailable
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
	return nil
}

func (l *PollListener) loop(ctx context.Context, callback func(), done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	last, primed := l.observe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		current, ok := l.observe(ctx)
		if !ok {
			continue
		}
		if !primed {
			last, primed = current, true
			continue
		}
		if current != last {
			last = current
			if current != "" {
				callback()
			}
		}
	}
}

// observe returns the fingerprint of the clipboard text, or "" when it holds
// no text. ok is false when the read was inconclusive.
func (l *PollListener) observe(ctx context.Context) (string, bool) {
	text, err := l.source.ReadText(ctx)
	switch {
	case err == nil:
		if text == "" {
			return "", true
		}
		return contenthash.Fingerprint([]byte(text)), true
	case errors.Is(err, ErrNoText):
		return "", true
	default:
		if !errors.Is(err, ErrBusy) && ctx.Err() == nil {
			l.logger.Debug("clipboard poll failed", logging.Error(err))
		}
		return "", false
	}
}

// Unregister stops polling and waits for the poller to exit.
func (l *PollListener) Unregister() error {
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
