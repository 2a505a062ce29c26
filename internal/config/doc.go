// Package config loads, normalizes, and validates nexusclip configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and resolves the storage root from the KAIRO_NEXUS_ROOT
// environment override before falling back to the platform user-data
// directory. Unusable overrides are ignored silently so that a bad environment
// never prevents the listener from starting.
//
// Always obtain settings through this package so downstream code receives
// absolute paths and canonical backend and log format names.
package config
