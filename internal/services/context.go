package services

import "context"

type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	eventIDKey   contextKey = "event_id"
	folderIDKey  contextKey = "folder_id"
)

// WithSessionID annotates context with the watcher run identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext returns the watcher run identifier if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sessionIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithEventID annotates context with the daemon event identifier being processed.
func WithEventID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, eventIDKey, id)
}

// EventIDFromContext extracts the daemon event identifier if present.
func EventIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(eventIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithFolderID annotates context with the folder the current event belongs to.
func WithFolderID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, folderIDKey, id)
}

// FolderIDFromContext returns the folder identifier if present.
func FolderIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(folderIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
