// Package workflow hosts the wizard's job-orchestration state machine.
//
// The Manager owns the in-flight session: the current step, the uploaded
// deck, the generated script, and the audio, avatar, and assemble stages.
// It validates stage prerequisites, issues job-start requests, attaches a
// poller per running job, applies cascading invalidation when a stage is
// regenerated, and persists the session after every change. Every mutation
// happens under one mutex, so poll results for different stages interleave
// but never race; a poll whose job id was cleared is discarded.
//
// While the wizard sits on the avatar step, a BusyMonitor tracks the
// backend's exclusive avatar renderer and vetoes avatar starts while another
// render holds it.
package workflow
