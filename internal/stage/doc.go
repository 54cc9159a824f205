// Package stage models the lifecycle of one pipeline stage (audio, avatar,
// assemble) as an explicit reducer.
//
// Apply folds an Event into a State and rejects transitions the lifecycle
// does not allow. The package also owns the fixed prerequisite graph, the
// cascading invalidation table, and the wizard step each stage runs on. It
// performs no I/O; the workflow package drives it.
package stage
