// Package preflight provides readiness checks for the pipeline backend and
// the local state directory that slidecast depends on.
//
// These checks run in two contexts:
//   - The CLI "slidecast doctor" command calls RunAll and prints every result.
//   - The wizard runs CheckBackend once at startup and warns when the
//     backend is unreachable, without refusing to start.
//
// Checks never mutate backend state.
package preflight
