// Package logging assembles structured slog loggers and formatting helpers used
// across slidecast.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so workflow code can tag log lines with
// stage kinds, job identifiers, and correlation IDs. The package also provides
// a no-op logger for tests and wiring code that cannot fail.
package logging
