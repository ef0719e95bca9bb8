// Package logging provides slog-based loggers with console and JSON handlers
// plus shared attribute helpers used across the daemon.
package logging
