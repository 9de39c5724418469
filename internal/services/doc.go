// Package services defines shared utilities consumed by the watcher, its
// dispatchers, and the daemon client.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, event IDs, and folder IDs for
//     logging.
//   - Structured error markers plus the Wrap helper that classify failures as
//     configuration, transient, stream-interruption, or unreachable-daemon
//     conditions.
//   - ExitCode, which translates a terminal error into the documented process
//     exit status.
//
// Use these helpers when wiring new components so error handling and
// observability stay uniform across the watcher.
package services
