package clipboard

import (
	"context"
	"errors"

	"golang.org/x/text/encoding/unicode"
)

var (
	// ErrBusy reports that the clipboard is momentarily held by another process.
	ErrBusy = errors.New("clipboard busy")
	// ErrTimeout reports a helper that did not answer in time. It is not
	// retried: a hung helper would stall the cycle once per attempt.
	ErrTimeout = errors.New("clipboard read timed out")
	// ErrNoText reports that the clipboard holds no text content.
	ErrNoText = errors.New("clipboard holds no text")
	// ErrUnavailable reports that no clipboard backend could be found.
	ErrUnavailable = errors.New("clipboard backend unavailable")
)

// Source performs a single read of the clipboard's text content.
type Source interface {
	ReadText(ctx context.Context) (string, error)
}

// Listener delivers clipboard change notifications. Callbacks carry no
// payload, may be coalesced by the host, and must not block.
type Listener interface {
	Register(callback func()) error
	Unregister() error
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (string, error)

// ReadText calls f.
func (f SourceFunc) ReadText(ctx context.Context) (string, error) {
	return f(ctx)
}

// Unavailable returns a Source that always fails with the given cause wrapped
// in ErrUnavailable. It keeps the daemon inert instead of failing startup.
func Unavailable(cause error) Source {
	return SourceFunc(func(context.Context) (string, error) {
		if cause == nil {
			return "", ErrUnavailable
		}
		return "", errors.Join(ErrUnavailable, cause)
	})
}

// decodeUTF8 replaces invalid sequences with U+FFFD and drops a leading BOM.
func decodeUTF8(b []byte) string {
	out, err := unicode.UTF8BOM.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// decodeUTF16LE decodes little-endian UTF-16 clipboard memory up to the first
// NUL code unit.
func decodeUTF16LE(b []byte) string {
	end := len(b) &^ 1
	for i := 0; i+1 < end; i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			end = i
			break
		}
	}
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b[:end])
	if err != nil {
		return ""
	}
	return string(out)
}
