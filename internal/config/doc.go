// Package config loads, normalizes, and validates the ytscribe TOML
// configuration. Load layers the on-disk file over built-in defaults; the
// resulting Config is immutable for the life of the process.
package config
