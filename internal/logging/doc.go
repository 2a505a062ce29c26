// Package logging assembles structured slog loggers and formatting helpers used
// across nexusclip.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// standardized field keys (component, event_type, error_hint, impact) so that
// the capture pipeline, the daemon, and the CLI emit lines with the same shape.
// A no-op logger is provided for tests and wiring code that cannot fail.
package logging
