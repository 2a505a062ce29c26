package logging_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nexusclip/internal/config"
	"nexusclip/internal/logging"
)

func TestNewFromConfigWritesRunLog(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Format = "json"
	runLog := filepath.Join(t.TempDir(), "logs", "nexusclip-run.log")

	logger, err := logging.NewFromConfig(&cfg, runLog, logging.Options{})
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("capture saved", logging.String(logging.FieldCaptureFile, "capture-x.json"))

	content, err := os.ReadFile(runLog)
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &line); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", content, err)
	}
	if line["msg"] != "capture saved" {
		t.Fatalf("unexpected msg: %v", line["msg"])
	}
	if line["level"] != "info" {
		t.Fatalf("unexpected level: %v", line["level"])
	}
	if _, ok := line["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", line)
	}
	if line[logging.FieldCaptureFile] != "capture-x.json" {
		t.Fatalf("unexpected capture_file: %v", line[logging.FieldCaptureFile])
	}
}

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "capture").Info("captured",
		logging.String("file", "a b"),
		logging.Int("bytes", 12),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, " INFO capture: captured") {
		t.Fatalf("expected component prefix, got %q", text)
	}
	if !strings.Contains(text, `file="a b"`) {
		t.Fatalf("expected quoted value, got %q", text)
	}
	if !strings.Contains(text, "bytes=12") {
		t.Fatalf("expected int field, got %q", text)
	}
	if strings.Contains(text, ".go:") {
		t.Fatalf("expected no source location at info level, got %q", text)
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("trace")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected source location in debug output, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "ledger append failed", "ledger_append_failed", logging.Error(errors.New("disk full")))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(content, &line); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{logging.FieldEventType, logging.FieldErrorHint, logging.FieldImpact} {
		if _, ok := line[key]; !ok {
			t.Fatalf("expected %s in %v", key, line)
		}
	}
	if line[logging.FieldEventType] != "ledger_append_failed" {
		t.Fatalf("unexpected event_type: %v", line[logging.FieldEventType])
	}
}

func TestCleanupOldLogsRespectsExclusions(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "nexusclip-old.log")
	current := filepath.Join(dir, "nexusclip-current.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, current, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		stale := time.Now().AddDate(0, 0, -10)
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), 3, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "nexusclip-*.log",
		Exclude: []string{current},
	})
	if removed != 1 {
		t.Fatalf("expected 1 file removed, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, path := range []string{current, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
}

func TestNewFromConfigLevelOverride(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "error"
	runLog := filepath.Join(t.TempDir(), "nexusclip-run.log")

	logger, err := logging.NewFromConfig(&cfg, runLog, logging.Options{Level: "debug"})
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("trace line")

	content, err := os.ReadFile(runLog)
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"trace line"`) {
		t.Fatalf("expected debug line with override, got %q", content)
	}
}

func TestErrorWithContextKeepsCallerHint(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "error.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.ErrorWithContext(logger, "capture file write failed", "capture_write_failed",
		logging.String(logging.FieldErrorHint, "free some space"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(content, &line); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if line[logging.FieldErrorHint] != "free some space" {
		t.Fatalf("caller hint overridden: %v", line)
	}
	if line[logging.FieldEventType] != "capture_write_failed" || line["level"] != "error" {
		t.Fatalf("unexpected line: %v", line)
	}
	if _, ok := line[logging.FieldImpact]; ok {
		t.Fatalf("error lines should not get an impact default: %v", line)
	}
}
