package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nexusclip/internal/config"
	"nexusclip/internal/contenthash"
	"nexusclip/internal/inbox"
	"nexusclip/internal/ledger"
	"nexusclip/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	t.Setenv(config.RootEnvVar, "")
	cfg := testsupport.NewConfig(t, opts...)
	path := filepath.Join(testsupport.BaseDir(cfg), "nexusclip.toml")
	writeTestConfig(t, path, cfg)
	return &cliTestEnv{cfg: cfg, configPath: path}
}

// capture writes payload into the inbox and ledger as if captured at the given time.
func (e *cliTestEnv) capture(t *testing.T, at time.Time, payload string) inbox.File {
	t.Helper()
	clock := func() time.Time { return at }
	file, err := inbox.NewWriter(e.cfg.InboxDir(), inbox.WithClock(clock)).Write([]byte(payload))
	if err != nil {
		t.Fatalf("write capture: %v", err)
	}
	rec := ledger.NewCaptureRecord(file.CapturedAt, file.Name, contenthash.Fingerprint([]byte(payload)))
	if err := ledger.NewWithClock(e.cfg.LedgerDir(), clock).Append(rec); err != nil {
		t.Fatalf("append ledger: %v", err)
	}
	return file
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	return runCLIWithInput(t, args, configPath, nil)
}

func runCLIWithInput(t *testing.T, args []string, configPath string, stdin io.Reader) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}
