// Package logging assembles structured slog loggers and formatting helpers used
// across stwatch.
//
// It owns the configurable console/JSON handlers, the rotating file sink, and
// the fan-out that writes to both. Context-aware helpers tag log lines with
// event and folder identifiers, and WarnWithContext/ErrorWithContext keep
// recoverable conditions tagged with event_type, error_hint, and impact.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the watcher.
package logging
