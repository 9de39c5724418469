// Package preflight provides the daemon liveness probe and readiness checks
// for the paths stwatch depends on.
//
// These checks run in two contexts:
//   - The watcher uses Prober before its first poll and again after a stream
//     interruption to decide whether the daemon is restarting or gone.
//   - The CLI "stwatch status" command uses RunAll to display daemon, API,
//     and directory health.
package preflight
