//go:build !windows

package clipboard

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"nexusclip/internal/logging"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestCommandSourceReadsOutput(t *testing.T) {
	requireShell(t)
	src := NewCommandSource([]string{"sh", "-c", `printf '{"proto_ver":"aitcp-hilr-1"}'`}, time.Second)
	text, err := src.ReadText(context.Background())
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if text != `{"proto_ver":"aitcp-hilr-1"}` {
		t.Fatalf("text = %q", text)
	}
}

func TestCommandSourceClassifiesFailures(t *testing.T) {
	requireShell(t)
	tests := []struct {
		name    string
		script  string
		timeout time.Duration
		want    error
	}{
		{"empty clipboard", "exit 1", time.Second, ErrNoText},
		{"empty output", "true", time.Second, ErrNoText},
		{"timeout", "exec sleep 5", 50 * time.Millisecond, ErrTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewCommandSource([]string{"sh", "-c", tt.script}, tt.timeout)
			_, err := src.ReadText(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCommandSourceRepairsInvalidUTF8(t *testing.T) {
	requireShell(t)
	src := NewCommandSource([]string{"sh", "-c", `printf 'a\377b'`}, time.Second)
	text, err := src.ReadText(context.Background())
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if text != "a�b" {
		t.Fatalf("text = %q", text)
	}
}

func TestCommandSourceWithoutArgv(t *testing.T) {
	_, err := NewCommandSource(nil, time.Second).ReadText(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v", err)
	}
}

func TestCommandListenerMissingBinary(t *testing.T) {
	l := &CommandListener{
		backend: "test",
		binary:  "nexusclip-definitely-missing-helper",
		logger:  logging.NewNop(),
		watch:   func(context.Context, func()) error { return nil },
	}
	if err := l.Register(func() {}); err == nil {
		t.Fatal("expected missing helper to fail registration")
	}
}

func TestCommandListenerDeliversLines(t *testing.T) {
	requireShell(t)
	l := &CommandListener{
		backend: "test",
		binary:  "sh",
		logger:  logging.NewNop(),
		watch: func(ctx context.Context, notify func()) error {
			return watchLines(ctx, notify, "sh", "-c", "echo; echo; exec sleep 5")
		},
	}
	fired := make(chan struct{}, 4)
	if err := l.Register(func() { fired <- struct{}{} }); err != nil {
		t.Fatalf("Register: %v", err)
	}
	for range 2 {
		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatal("watcher did not report change")
		}
	}
	if err := l.Unregister(); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
}
