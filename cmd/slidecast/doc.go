// Package main hosts the slidecast CLI entrypoint and command graph.
//
// The Cobra-based command tree wraps the interactive wizard, saved-session
// maintenance, avatar renderer controls, configuration scaffolding, and the
// doctor checks. It centralizes configuration resolution, the backend client,
// and structured logging setup so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or REPL verbs
// here.
package main
