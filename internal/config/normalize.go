package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeListener()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	root := ""
	if override, ok := usableRoot(os.Getenv(RootEnvVar)); ok {
		root = override
	} else if override, ok := usableRoot(c.Paths.RootDir); ok {
		root = override
	} else {
		root = DefaultRootDir()
	}
	c.Paths.RootDir = root

	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(root, "logs")
	}
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

// usableRoot expands a candidate root and reports whether it can serve as the
// storage root. Blank values, values with NUL bytes, values that cannot be made
// absolute, and paths naming an existing non-directory are rejected.
func usableRoot(value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || strings.ContainsRune(trimmed, 0) {
		return "", false
	}
	expanded, err := expandPath(trimmed)
	if err != nil {
		return "", false
	}
	if info, err := os.Stat(expanded); err == nil && !info.IsDir() {
		return "", false
	}
	return expanded, true
}

func (c *Config) normalizeListener() {
	c.Listener.Backend = strings.ToLower(strings.TrimSpace(c.Listener.Backend))
	if c.Listener.Backend == "" {
		c.Listener.Backend = defaultBackend
	}
	if c.Listener.PollIntervalMS == 0 {
		c.Listener.PollIntervalMS = defaultPollIntervalMS
	}
	if c.Listener.CommandTimeoutMS == 0 {
		c.Listener.CommandTimeoutMS = defaultCommandTimeoutMS
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
