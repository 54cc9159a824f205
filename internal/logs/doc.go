// Package logs reads the slidecast log file for the CLI "logs" command:
// the last N lines, and new lines as they are appended.
package logs
