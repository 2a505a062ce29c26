//go:build !windows

package clipboard

import (
	"fmt"
	"log/slog"
)

func newNativeSource() (Source, error) {
	return nil, fmt.Errorf("%w: native clipboard access requires windows", ErrUnavailable)
}

func newNativeListener(*slog.Logger) (Listener, error) {
	return nil, fmt.Errorf("%w: native clipboard notifications require windows", ErrUnavailable)
}
