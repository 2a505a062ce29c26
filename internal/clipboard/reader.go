package clipboard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"nexusclip/internal/logging"
)

const (
	// DefaultAttempts bounds how often a contended clipboard is retried.
	DefaultAttempts = 6
	// DefaultRetryDelay is the pause between contended attempts.
	DefaultRetryDelay = 40 * time.Millisecond
)

// Reader reads clipboard text with bounded retry on ErrBusy.
type Reader struct {
	source   Source
	attempts int
	delay    time.Duration
	logger   *slog.Logger
}

// ReaderOption customizes a Reader.
type ReaderOption func(*Reader)

// WithRetry overrides the attempt count and inter-attempt delay.
func WithRetry(attempts int, delay time.Duration) ReaderOption {
	return func(r *Reader) {
		if attempts > 0 {
			r.attempts = attempts
		}
		if delay >= 0 {
			r.delay = delay
		}
	}
}

// NewReader wraps source with the default retry policy.
func NewReader(source Source, logger *slog.Logger, opts ...ReaderOption) *Reader {
	r := &Reader{
		source:   source,
		attempts: DefaultAttempts,
		delay:    DefaultRetryDelay,
		logger:   logging.NewComponentLogger(logger, "clipboard-reader"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read returns the current clipboard text. It reports false when the clipboard
// is empty, holds only whitespace, holds no text, or could not be read. The
// text is returned untrimmed.
func (r *Reader) Read(ctx context.Context) (string, bool) {
	for attempt := 1; attempt <= r.attempts; attempt++ {
		text, err := r.source.ReadText(ctx)
		switch {
		case err == nil:
			if strings.TrimSpace(text) == "" {
				return "", false
			}
			return text, true
		case errors.Is(err, ErrBusy):
			if attempt == r.attempts {
				r.logger.Debug("clipboard stayed busy", logging.Int("attempts", attempt))
				return "", false
			}
			if !sleep(ctx, r.delay) {
				return "", false
			}
		case errors.Is(err, ErrNoText):
			return "", false
		case errors.Is(err, ErrTimeout):
			r.logger.Debug("clipboard helper timed out", logging.Error(err))
			return "", false
		default:
			r.logger.Debug("clipboard read failed", logging.Error(err))
			return "", false
		}
	}
	return "", false
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
