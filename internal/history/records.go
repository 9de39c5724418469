package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stwatch/internal/activity"
)

// Entry is one recorded activity row.
type Entry struct {
	ID         int64
	EventID    int64
	SessionID  string
	RecordedAt time.Time
	Payload    activity.Payload
}

// CursorState is the last event cursor the watcher persisted.
type CursorState struct {
	Cursor    int64
	SessionID string
	UpdatedAt time.Time
}

// Record appends a dispatched payload.
func (s *Store) Record(ctx context.Context, sessionID string, eventID int64, payload activity.Payload) error {
	raw, err := payload.MarshalIndented()
	if err != nil {
		return err
	}
	var errText sql.NullString
	if payload.Error != nil {
		errText = sql.NullString{String: *payload.Error, Valid: true}
	}
	_, err = s.exec(ctx, `INSERT INTO activity (
        event_id, session_id, recorded_at, event_time, folder_id, folder_label,
        action, item_type, item, path, error, payload
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		eventID,
		sessionID,
		s.now().UTC().Format(time.RFC3339Nano),
		payload.Time,
		payload.FolderID,
		payload.FolderLabel,
		payload.Action,
		payload.Type,
		payload.Item,
		payload.Path,
		errText,
		raw,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, event_id, session_id, recorded_at, event_time,
        folder_id, folder_label, action, item_type, item, path, error
        FROM activity ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry      Entry
			recordedAt string
			errText    sql.NullString
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.EventID,
			&entry.SessionID,
			&recordedAt,
			&entry.Payload.Time,
			&entry.Payload.FolderID,
			&entry.Payload.FolderLabel,
			&entry.Payload.Action,
			&entry.Payload.Type,
			&entry.Payload.Item,
			&entry.Payload.Path,
			&errText,
		); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if errText.Valid {
			msg := errText.String
			entry.Payload.Error = &msg
		}
		entry.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return entries, nil
}

// Count returns the number of recorded activity rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM activity").Scan(&n); err != nil {
		return 0, fmt.Errorf("count activity: %w", err)
	}
	return n, nil
}

// Prune keeps the newest maxEntries rows and reports how many were removed.
// A non-positive maxEntries disables pruning.
func (s *Store) Prune(ctx context.Context, maxEntries int) (int64, error) {
	if maxEntries <= 0 {
		return 0, nil
	}
	res, err := s.exec(ctx,
		"DELETE FROM activity WHERE id NOT IN (SELECT id FROM activity ORDER BY id DESC LIMIT ?)",
		maxEntries,
	)
	if err != nil {
		return 0, fmt.Errorf("prune activity: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// SaveCursor stores the watcher's current cursor.
func (s *Store) SaveCursor(ctx context.Context, sessionID string, cursor int64) error {
	_, err := s.exec(ctx, `INSERT INTO watcher_state (id, cursor, session_id, updated_at)
        VALUES (1, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET cursor = excluded.cursor,
            session_id = excluded.session_id, updated_at = excluded.updated_at`,
		cursor, sessionID, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}

// LastCursor returns the persisted cursor. The boolean is false when no
// cursor has been recorded yet.
func (s *Store) LastCursor(ctx context.Context) (CursorState, bool, error) {
	var (
		state     CursorState
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT cursor, session_id, updated_at FROM watcher_state WHERE id = 1",
	).Scan(&state.Cursor, &state.SessionID, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CursorState{}, false, nil
	}
	if err != nil {
		return CursorState{}, false, fmt.Errorf("read cursor: %w", err)
	}
	state.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return state, true, nil
}
