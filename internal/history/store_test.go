package history_test

import (
	"context"
	"testing"

	"stwatch/internal/activity"
	"stwatch/internal/history"
	"stwatch/internal/services"
	"stwatch/internal/testsupport"
)

func payload(item string, errText *string) activity.Payload {
	return activity.Payload{
		Time:        "2024-01-01T00:00:00Z",
		Action:      "update",
		Type:        "file",
		Item:        item,
		Error:       errText,
		FolderLabel: "Docs",
		FolderID:    "abc",
		Path:        "/srv/docs/" + item,
	}
}

func TestRecordAndRecentNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	failure := "permission denied"
	if err := store.Record(ctx, "session-1", 10, payload("a.txt", nil)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Record(ctx, "session-1", 11, payload("b.txt", &failure)); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].EventID != 11 || entries[0].Payload.Item != "b.txt" {
		t.Fatalf("expected newest entry first, got %#v", entries[0])
	}
	if entries[0].Payload.ErrorText() != failure {
		t.Fatalf("expected error text to round trip, got %q", entries[0].Payload.ErrorText())
	}
	if entries[1].Payload.Error != nil {
		t.Fatalf("expected nil error for successful item, got %q", *entries[1].Payload.Error)
	}
	if entries[1].SessionID != "session-1" || entries[1].Payload.Path != "/srv/docs/a.txt" {
		t.Fatalf("unexpected entry %#v", entries[1])
	}
	if entries[1].RecordedAt.IsZero() {
		t.Fatal("expected recorded_at to be set")
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		if err := store.Record(ctx, "s", i, payload("f.txt", nil)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	removed, err := store.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed rows, got %d", removed)
	}
	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 || entries[0].EventID != 5 || entries[1].EventID != 4 {
		t.Fatalf("unexpected survivors %#v", entries)
	}

	if removed, err := store.Prune(ctx, 0); err != nil || removed != 0 {
		t.Fatalf("expected pruning disabled for zero limit, got %d, %v", removed, err)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, ok, err := store.LastCursor(ctx); err != nil || ok {
		t.Fatalf("expected no cursor on fresh store, got ok=%v err=%v", ok, err)
	}
	if err := store.SaveCursor(ctx, "s1", 41); err != nil {
		t.Fatalf("SaveCursor: %v", err)
	}
	if err := store.SaveCursor(ctx, "s2", 42); err != nil {
		t.Fatalf("SaveCursor: %v", err)
	}
	state, ok, err := store.LastCursor(ctx)
	if err != nil || !ok {
		t.Fatalf("LastCursor: ok=%v err=%v", ok, err)
	}
	if state.Cursor != 42 || state.SessionID != "s2" {
		t.Fatalf("unexpected cursor state %#v", state)
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Record(context.Background(), "s", 1, payload("a", nil)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	n, err := reopened.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected persisted row, got %d", n)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := history.Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestStorePathAndNilClose(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if store.Path() != cfg.HistoryPath() {
		t.Fatalf("Path() = %q, want %q", store.Path(), cfg.HistoryPath())
	}

	var missing *history.Store
	if missing.Path() != "" {
		t.Fatalf("nil store path = %q", missing.Path())
	}
	if err := missing.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}

func TestRecorderUsesContextIdentifiers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	recorder := history.NewRecorder(store, 100, nil)

	ctx := services.WithSessionID(context.Background(), "run-7")
	ctx = services.WithEventID(ctx, 99)
	if err := recorder.Dispatch(ctx, payload("doc.md", nil)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := recorder.Checkpoint(ctx, 99); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	entries, err := store.Recent(context.Background(), 1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("Recent: %v (%d entries)", err, len(entries))
	}
	if entries[0].EventID != 99 || entries[0].SessionID != "run-7" {
		t.Fatalf("unexpected identifiers %#v", entries[0])
	}
	state, ok, err := store.LastCursor(context.Background())
	if err != nil || !ok || state.Cursor != 99 || state.SessionID != "run-7" {
		t.Fatalf("unexpected cursor %#v ok=%v err=%v", state, ok, err)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var recorder *history.Recorder
	if err := recorder.Dispatch(context.Background(), payload("a", nil)); err != nil {
		t.Fatalf("expected nil recorder to be a no-op, got %v", err)
	}
}
