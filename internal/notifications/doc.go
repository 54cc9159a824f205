// Package notifications surfaces stage errors and completions.
//
// Banner is the single top-level message slot the wizard renders: the latest
// report replaces the previous one until the user dismisses it. Service
// optionally forwards completions and failures to an ntfy topic.
package notifications
