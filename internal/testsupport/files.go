package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Payload returns an in-scope clipboard payload carrying value.
func Payload(value string) string {
	return `{"proto_ver":"aitcp-hilr-1","value":"` + value + `"}`
}

// SizedPayload returns an in-scope payload of exactly size bytes.
func SizedPayload(t testing.TB, size int) string {
	t.Helper()

	prefix := `{"proto_ver":"aitcp-hilr-1","pad":"`
	suffix := `"}`
	pad := size - len(prefix) - len(suffix)
	if pad < 0 {
		t.Fatalf("payload size %d below minimum %d", size, len(prefix)+len(suffix))
	}
	return prefix + strings.Repeat("x", pad) + suffix
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
