package config

import (
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateListener(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateListener() error {
	switch c.Listener.Backend {
	case BackendAuto, BackendNative, BackendWlPaste, BackendClipnotify, BackendPoll:
	default:
		return fmt.Errorf("listener.backend: unsupported value %q (want auto, native, wl-paste, clipnotify, or poll)", c.Listener.Backend)
	}
	if c.Listener.PollIntervalMS < 50 {
		return fmt.Errorf("listener.poll_interval_ms must be at least 50, got %d", c.Listener.PollIntervalMS)
	}
	if c.Listener.CommandTimeoutMS <= 0 {
		return fmt.Errorf("listener.command_timeout_ms must be positive, got %d", c.Listener.CommandTimeoutMS)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return fmt.Errorf("notifications.request_timeout must be positive (seconds)")
	}
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be a full URL such as https://ntfy.sh/my-topic")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return fmt.Errorf("logging.retention_days must not be negative")
	}
	return nil
}
