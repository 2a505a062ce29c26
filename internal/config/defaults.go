package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	defaultConfigPath       = "~/.config/nexusclip/config.toml"
	projectConfigName       = "nexusclip.toml"
	defaultBackend          = BackendAuto
	defaultPollIntervalMS   = 500
	defaultCommandTimeoutMS = 250
	defaultNotifyTimeout    = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
)

// Listener backends.
const (
	BackendAuto       = "auto"
	BackendNative     = "native"
	BackendWlPaste    = "wl-paste"
	BackendClipnotify = "clipnotify"
	BackendPoll       = "poll"
)

// Default returns a Config populated with repository defaults. Paths are left
// empty and resolved during Load.
func Default() Config {
	return Config{
		Listener: Listener{
			Backend:          defaultBackend,
			PollIntervalMS:   defaultPollIntervalMS,
			CommandTimeoutMS: defaultCommandTimeoutMS,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Captures:       true,
			Failures:       true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

// DefaultRootDir returns the platform user-data location for captures.
func DefaultRootDir() string {
	switch runtime.GOOS {
	case "windows":
		base := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
		if base == "" {
			if dir, err := os.UserConfigDir(); err == nil {
				base = dir
			}
		}
		return filepath.Join(base, "KAIRO", "Nexus")
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "KAIRO", "Nexus")
		}
		return filepath.Join(home, "Library", "Application Support", "KAIRO", "Nexus")
	default:
		if base, ok := os.LookupEnv("XDG_DATA_HOME"); ok && strings.TrimSpace(base) != "" && filepath.IsAbs(base) {
			return filepath.Join(base, "kairo", "nexus")
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "kairo", "nexus")
		}
		return filepath.Join(home, ".local", "share", "kairo", "nexus")
	}
}
