// Package logging assembles structured slog loggers and formatting helpers used
// across rymbridge services.
//
// It owns the configurable console/JSON handlers and centralizes level and
// output plumbing so every subsystem emits log lines with the same shape. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
