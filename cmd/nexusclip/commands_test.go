package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"nexusclip/internal/testsupport"
)

const sampleEnvelope = `{"proto_ver":"aitcp-hilr-1","body":"hello"}`

func TestConfigInitWritesSampleAndRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "conf", "nexusclip.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireNotContains(t, out, "defaults were used")

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "# source: "+env.configPath)
	requireContains(t, out, env.cfg.Paths.RootDir)
}

func TestConfigValidateRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[listener]\nmystery = 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, path); err == nil {
		t.Fatal("expected unknown key to fail validation")
	}
}

func TestCheckReportsScopeFromStdin(t *testing.T) {
	out, _, err := runCLIWithInput(t, []string{"check"}, "", strings.NewReader("  "+sampleEnvelope+"\n"))
	if err != nil {
		t.Fatalf("check in-scope: %v", err)
	}
	requireContains(t, out, "in scope: proto_ver=aitcp-hilr-1")
	requireContains(t, out, "size=43")

	out, _, err = runCLIWithInput(t, []string{"check", "-"}, "", strings.NewReader(`{"proto_ver":"other-1"}`))
	if err == nil {
		t.Fatal("expected out-of-scope payload to fail")
	}
	requireContains(t, out, "out of scope")
}

func TestCheckReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.json")
	if err := os.WriteFile(path, []byte("{\n  // note\n  \"proto_ver\": \"aitcp-hilr-2\",\n}\n"), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	out, _, err := runCLI(t, []string{"check", path}, "")
	if err != nil {
		t.Fatalf("check file: %v", err)
	}
	requireContains(t, out, "proto_ver=aitcp-hilr-2")
}

func TestCapturesListsNewestFirst(t *testing.T) {
	env := setupCLITestEnv(t)
	older := env.capture(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), sampleEnvelope)
	newer := env.capture(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), `{"proto_ver":"aitcp-hilr-1","n":2}`)

	out, _, err := runCLI(t, []string{"captures", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("captures --json: %v", err)
	}
	var views []captureView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode captures: %v\n%s", err, out)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 captures, got %d", len(views))
	}
	if views[0].File != newer.Name || views[1].File != older.Name {
		t.Fatalf("unexpected order: %+v", views)
	}
	if len(views[1].SHA256) != 64 {
		t.Fatalf("expected ledger hash on capture view, got %q", views[1].SHA256)
	}

	out, _, err = runCLI(t, []string{"captures", "--day", "20260301"}, env.configPath)
	if err != nil {
		t.Fatalf("captures --day: %v", err)
	}
	requireContains(t, out, older.Name)
	requireNotContains(t, out, newer.Name)

	out, _, err = runCLI(t, []string{"captures", "--limit", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("captures --limit: %v", err)
	}
	requireContains(t, out, newer.Name)
	requireNotContains(t, out, older.Name)

	if _, _, err := runCLI(t, []string{"captures", "--day", "2026-03-01"}, env.configPath); err == nil {
		t.Fatal("expected malformed --day to fail")
	}
}

func TestCapturesEmptyStore(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"captures"}, env.configPath)
	if err != nil {
		t.Fatalf("captures: %v", err)
	}
	requireContains(t, out, "No captures")
}

func TestVerifyDetectsTamperingAndOrphans(t *testing.T) {
	env := setupCLITestEnv(t)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	first := env.capture(t, at, sampleEnvelope)
	env.capture(t, at.Add(time.Minute), `{"proto_ver":"aitcp-hilr-1","n":2}`)

	out, _, err := runCLI(t, []string{"verify"}, env.configPath)
	if err != nil {
		t.Fatalf("verify clean store: %v\n%s", err, out)
	}
	requireContains(t, out, "Checked 2 ledger records")
	requireContains(t, out, "All captures verified")

	if err := os.WriteFile(first.Path, []byte(`{"proto_ver":"aitcp-hilr-1","body":"edited"}`), 0o644); err != nil {
		t.Fatalf("tamper capture: %v", err)
	}
	orphan := filepath.Join(env.cfg.InboxDir(), "capture-20260301T100000000Z-orphan.json")
	if err := os.WriteFile(orphan, []byte(sampleEnvelope), 0o644); err != nil {
		t.Fatalf("write orphan: %v", err)
	}

	out, _, err = runCLI(t, []string{"verify", "--day", "20260301"}, env.configPath)
	if err == nil {
		t.Fatal("expected verify to report problems")
	}
	requireContains(t, out, "mismatch")
	requireContains(t, out, first.Name)
	requireContains(t, out, "orphan")
	requireContains(t, out, filepath.Base(orphan))

	if err := os.Remove(first.Path); err != nil {
		t.Fatalf("remove capture: %v", err)
	}
	out, _, _ = runCLI(t, []string{"verify"}, env.configPath)
	requireContains(t, out, "missing")
}

func TestStatusSummarizesStore(t *testing.T) {
	env := setupCLITestEnv(t)
	env.capture(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), sampleEnvelope)
	last := env.capture(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), sampleEnvelope)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "not running")
	requireContains(t, out, "poll")
	requireContains(t, out, "2 captures")
	requireContains(t, out, "2 records across 2 days")
	requireContains(t, out, last.Name)
	requireContains(t, out, "Notifications:")
	requireNotContains(t, out, "\x1b[")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
}

func TestCaptureNowCapturesOnceThenReportsDuplicate(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("command helpers are not used on windows")
	}
	t.Setenv("WAYLAND_DISPLAY", "wayland-test")
	t.Setenv("DISPLAY", "")
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries(sampleEnvelope, "wl-paste"))

	out, _, err := runCLI(t, []string{"capture-now"}, env.configPath)
	if err != nil {
		t.Fatalf("capture-now: %v", err)
	}
	requireContains(t, out, "Captured clipboard payload")

	out, _, err = runCLI(t, []string{"verify"}, env.configPath)
	if err != nil {
		t.Fatalf("verify after capture-now: %v\n%s", err, out)
	}
	requireContains(t, out, "Checked 1 ledger records")
}

func TestCaptureNowIgnoresForeignClipboard(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("command helpers are not used on windows")
	}
	t.Setenv("WAYLAND_DISPLAY", "wayland-test")
	t.Setenv("DISPLAY", "")
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries("just some text", "wl-paste"))

	out, _, err := runCLI(t, []string{"capture-now"}, env.configPath)
	if err != nil {
		t.Fatalf("capture-now: %v", err)
	}
	requireContains(t, out, "Nothing captured (out_of_scope)")
}
