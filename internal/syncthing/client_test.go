package syncthing_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stwatch/internal/services"
	"stwatch/internal/syncthing"
)

func newClient(t *testing.T, srv *httptest.Server) *syncthing.Client {
	t.Helper()
	client, err := syncthing.NewClient(srv.URL, "secret", srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestConfigSendsAPIKeyAndDecodesFolders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/system/config" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get(syncthing.APIKeyHeader); got != "secret" {
			t.Fatalf("expected api key header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":37,"folders":[{"id":"abc","label":"Docs","path":"/srv/docs","type":"sendreceive"}]}`))
	}))
	defer srv.Close()

	folders, err := newClient(t, srv).Folders(context.Background())
	if err != nil {
		t.Fatalf("Folders: %v", err)
	}
	if len(folders) != 1 || folders[0] != (syncthing.Folder{ID: "abc", Label: "Docs", Path: "/srv/docs"}) {
		t.Fatalf("unexpected folders %+v", folders)
	}
}

func TestEventsBuildsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/rest/events" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if q.Get("since") != "41" || q.Get("events") != "ItemFinished" || q.Get("timeout") != "2" || q.Get("limit") != "1" {
			t.Fatalf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[
			{"id":42,"type":"ItemFinished","time":"2024-01-01T00:00:00Z","data":{"folder":"abc","item":"x/y.txt","action":"update","type":"file","error":null}},
			{"id":43,"type":"Starting","time":"2024-01-01T00:00:01Z","data":{"home":"/var/syncthing"}}
		]`))
	}))
	defer srv.Close()

	events, err := newClient(t, srv).Events(context.Background(), syncthing.EventQuery{
		Since:   41,
		Events:  []string{syncthing.EventItemFinished},
		Limit:   1,
		Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	item, err := events[0].Item()
	if err != nil {
		t.Fatalf("Item: %v", err)
	}
	if item.Folder != "abc" || item.Item != "x/y.txt" || item.Error != nil {
		t.Fatalf("unexpected item data %+v", item)
	}
	if events[0].Timestamp(item) != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected timestamp %q", events[0].Timestamp(item))
	}
	if _, err := events[1].Item(); err == nil {
		t.Fatal("expected unknown event type to have no item view")
	}
}

func TestEventsStatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{name: "not modified", status: http.StatusNotModified, check: syncthing.IsNotModified},
		{name: "server error", status: http.StatusInternalServerError, check: func(err error) bool {
			var statusErr *syncthing.StatusError
			return errors.As(err, &statusErr) && statusErr.Code == 500 && errors.Is(err, services.ErrTransient)
		}},
		{name: "forbidden", status: http.StatusForbidden, check: func(err error) bool {
			return errors.Is(err, services.ErrTransient) && !syncthing.IsTransportError(err)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := newClient(t, srv).Events(context.Background(), syncthing.EventQuery{})
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error classification: %v", err)
			}
		})
	}
}

func TestEventsTruncatedBodyIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"type":"ItemFinished","data":{`))
	}))
	defer srv.Close()

	_, err := newClient(t, srv).Events(context.Background(), syncthing.EventQuery{})
	if !syncthing.IsTransportError(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestEventsDroppedConnectionIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Fatal("expected hijacker")
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Fatalf("hijack: %v", err)
		}
		_ = conn.Close()
	}))
	defer srv.Close()

	_, err := newClient(t, srv).Events(context.Background(), syncthing.EventQuery{})
	if !syncthing.IsTransportError(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestEventsRefusedConnectionIsTransient(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	client, err := syncthing.NewClient(addr, "secret", nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.Events(context.Background(), syncthing.EventQuery{})
	if err == nil {
		t.Fatal("expected error")
	}
	if syncthing.IsTransportError(err) {
		t.Fatalf("expected refused dial to be transient, got %v", err)
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestEventsCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := newClient(t, srv).Events(ctx, syncthing.EventQuery{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
