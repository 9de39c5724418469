package logging

import (
	"context"
	"log/slog"

	"stwatch/internal/services"
)

const (
	FieldComponent = "component"
	// FieldEventID is the Syncthing event id being handled.
	FieldEventID  = "event_id"
	FieldFolderID = "folder_id"
	// FieldCursor is the highest event id the watcher has consumed.
	FieldCursor = "cursor"
	// FieldEventType classifies warnings for filtering, e.g. folder_unresolved.
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldImpact    = "impact"
	FieldAlert     = "alert"
)

// WithContext returns logger annotated with the event and folder ids carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var args []any
	if id, ok := services.EventIDFromContext(ctx); ok {
		args = append(args, slog.Int64(FieldEventID, id))
	}
	if folder, ok := services.FolderIDFromContext(ctx); ok {
		args = append(args, slog.String(FieldFolderID, folder))
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
