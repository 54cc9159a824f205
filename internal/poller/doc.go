// Package poller runs cancellable status-poll loops for backend jobs.
//
// A Task fetches status immediately and then on a fixed interval until the
// job reaches a terminal status, the Sink reports the job id as stale, or the
// task is cancelled. Transport errors end the loop as failures; there is no
// automatic retry.
package poller
