package daemonrun

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"nexusclip/internal/capture"
	"nexusclip/internal/daemon"
	"nexusclip/internal/inbox"
	"nexusclip/internal/testsupport"
)

func TestEnsureCurrentLogPointerReplacesOld(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "nexusclip-1.log")
	second := filepath.Join(dir, "nexusclip-2.log")
	testsupport.WriteFile(t, first, "one")
	testsupport.WriteFile(t, second, "two")

	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "nexusclip.log"))
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if string(data) != "two" {
		t.Fatalf("pointer resolves to %q", data)
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nexusclip.pid")
	if _, ok := ReadPID(path); ok {
		t.Fatal("expected missing pid file")
	}
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	pid, ok := ReadPID(path)
	if !ok || pid != os.Getpid() {
		t.Fatalf("ReadPID = %d, %v", pid, ok)
	}
	testsupport.WriteFile(t, path, "garbage\n")
	if _, ok := ReadPID(path); ok {
		t.Fatal("expected garbage pid to be rejected")
	}
}

func TestRunStartsAndShutsDown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, Options{LogLevel: "error"}) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, ok := ReadPID(cfg.PIDPath()); ok {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("daemon did not write pid file")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if held, err := daemon.LockHeld(cfg); err != nil || !held {
		t.Fatalf("LockHeld = %v, %v", held, err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}

	if _, err := os.Stat(cfg.PIDPath()); !os.IsNotExist(err) {
		t.Fatalf("pid file not removed: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(cfg.Paths.LogDir, "nexusclip-*.log"))
	if len(matches) != 1 {
		t.Fatalf("run logs = %v", matches)
	}
	if held, _ := daemon.LockHeld(cfg); held {
		t.Fatal("lock still held after shutdown")
	}
}

func TestCaptureOnceReadsHelperOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("command helpers are not used on windows")
	}
	t.Setenv("WAYLAND_DISPLAY", "wayland-test")
	t.Setenv("DISPLAY", "")
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(testsupport.Payload("once"), "wl-paste"))

	outcome, err := CaptureOnce(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("CaptureOnce: %v", err)
	}
	if outcome != capture.OutcomeCaptured {
		t.Fatalf("outcome = %s", outcome)
	}
	files, err := inbox.List(cfg.InboxDir())
	if err != nil || len(files) != 1 {
		t.Fatalf("List = %d files, %v", len(files), err)
	}

	held, err := daemon.LockHeld(cfg)
	if err != nil || held {
		t.Fatalf("LockHeld = %v, %v", held, err)
	}
}

func TestCaptureOnceRefusesWhileDaemonRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, Options{LogLevel: "error"}) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if held, _ := daemon.LockHeld(cfg); held {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("daemon did not take the lock")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := CaptureOnce(context.Background(), cfg, nil); !errors.Is(err, daemon.ErrInstanceRunning) {
		t.Fatalf("expected ErrInstanceRunning, got %v", err)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}
