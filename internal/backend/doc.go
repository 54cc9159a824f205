// Package backend is the typed HTTP client for the narration pipeline API.
//
// Every endpoint the wizard consumes lives here: upload and parse status,
// script generation, the three job-start calls (batch audio, final assembly,
// avatar batch), the two job-status polls, the avatar system-info and
// force-unlock endpoints, and file deletion. Long-running start requests and
// short status checks carry separate timeouts; a request that exceeds its
// bound is reported as a timeout error rather than left hanging.
package backend
