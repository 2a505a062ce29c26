// Package notifications delivers capture events to the operator.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when notifications are disabled. Only
// saved captures and persistence failures are announced; dropped clipboard
// content is never reported.
package notifications
