package logging

import (
	"context"
	"log/slog"
)

// FieldSessionID identifies one watcher run across log lines and history rows.
const FieldSessionID = "session_id"

// stampHandler appends a fixed set of attributes to every record after the
// record's own attributes, so they are never shadowed by logger groups.
type stampHandler struct {
	next  slog.Handler
	stamp []slog.Attr
}

func withStamp(next slog.Handler, stamp ...slog.Attr) slog.Handler {
	if next == nil {
		return NoopHandler{}
	}
	if len(stamp) == 0 {
		return next
	}
	return stampHandler{next: next, stamp: stamp}
}

func (s stampHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return s.next.Enabled(ctx, level)
}

func (s stampHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(s.stamp...)
	return s.next.Handle(ctx, record)
}

func (s stampHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return stampHandler{next: s.next.WithAttrs(attrs), stamp: s.stamp}
}

func (s stampHandler) WithGroup(name string) slog.Handler {
	return stampHandler{next: s.next.WithGroup(name), stamp: s.stamp}
}
