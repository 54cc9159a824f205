// Package services defines shared utilities consumed by the workflow manager
// and the backend integration.
//
// Key responsibilities:
//   - Context helpers that stamp stage kinds, job IDs, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the categories surfaced on the error banner (prerequisite,
//     start failure, job failure, poll failure, resource contention).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the wizard.
package services
