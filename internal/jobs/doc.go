// Package jobs tracks the active backend job identifier for each pipeline
// stage kind.
//
// The registry is a pure data holder: it records at most one job id per kind
// and supports partial clears so callers can implement cascading
// invalidation. Policy about when ids may be set or cleared lives in the
// stage and workflow packages.
package jobs
