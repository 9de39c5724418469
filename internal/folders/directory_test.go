package folders_test

import (
	"context"
	"errors"
	"testing"

	"stwatch/internal/folders"
	"stwatch/internal/services"
	"stwatch/internal/syncthing"
)

type stubSource struct {
	calls   int
	results [][]syncthing.Folder
	err     error
}

func (s *stubSource) Folders(context.Context) ([]syncthing.Folder, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	idx := s.calls - 1
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	return s.results[idx], nil
}

func TestRefreshReplacesCache(t *testing.T) {
	source := &stubSource{results: [][]syncthing.Folder{
		{{ID: "abc", Label: "Docs", Path: "/srv/docs"}, {ID: "old", Label: "Old", Path: "/srv/old"}},
		{{ID: "abc", Label: "Documents", Path: "/srv/docs"}, {ID: "new", Label: "New", Path: "/srv/new"}},
	}}
	dir := folders.NewDirectory(source)

	if err := dir.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if _, ok := dir.Lookup("old"); !ok {
		t.Fatal("expected old folder after first refresh")
	}

	if err := dir.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if _, ok := dir.Lookup("old"); ok {
		t.Fatal("expected removed folder to stop resolving")
	}
	got, ok := dir.Lookup("abc")
	if !ok || got.Label != "Documents" {
		t.Fatalf("expected relabelled folder, got %+v ok=%v", got, ok)
	}
	if _, ok := dir.Lookup("new"); !ok {
		t.Fatal("expected new folder after refresh")
	}
	if dir.Len() != 2 {
		t.Fatalf("expected 2 folders, got %d", dir.Len())
	}
	list := dir.List()
	if list[0].Label != "Documents" || list[1].Label != "New" {
		t.Fatalf("expected folders sorted by label, got %+v", list)
	}
}

func TestRefreshFailureKeepsCacheAndPropagates(t *testing.T) {
	source := &stubSource{results: [][]syncthing.Folder{{{ID: "abc", Label: "Docs", Path: "/srv/docs"}}}}
	dir := folders.NewDirectory(source)
	if err := dir.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	source.err = errors.New("connection refused")
	err := dir.Refresh(context.Background())
	if err == nil {
		t.Fatal("expected refresh error")
	}
	if !errors.Is(err, services.ErrTransient) || !errors.Is(err, source.err) {
		t.Fatalf("expected transient marker wrapping cause, got %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected no internal retry, got %d calls", source.calls)
	}
	if _, ok := dir.Lookup("abc"); !ok {
		t.Fatal("expected previous cache kept after failed refresh")
	}
}
