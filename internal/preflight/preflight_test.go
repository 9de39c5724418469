package preflight

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stwatch/internal/config"
	"stwatch/internal/syncthing"
)

func TestDialAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "http://localhost:8384", want: "localhost:8384"},
		{in: "http://localhost", want: "localhost:80"},
		{in: "https://sync.example.com", want: "sync.example.com:443"},
		{in: "localhost:8384", want: "localhost:8384"},
		{in: "10.0.0.5", want: "10.0.0.5:80"},
		{in: "http://[::1]:8384/", want: "[::1]:8384"},
	}
	for _, tt := range tests {
		got, err := DialAddress(tt.in)
		if err != nil {
			t.Fatalf("DialAddress(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("DialAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := DialAddress(""); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestProberReachableClosesConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	accepted := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		buf := make([]byte, 1)
		_, readErr := conn.Read(buf)
		_ = conn.Close()
		if readErr != nil {
			close(accepted)
		}
	}()

	prober, err := NewProber("http://"+ln.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("NewProber: %v", err)
	}
	if !prober.Reachable(context.Background()) {
		t.Fatal("expected listener to be reachable")
	}
	select {
	case <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("expected probe connection to be closed without sending data")
	}
}

func TestProberUnreachable(t *testing.T) {
	prober := &Prober{
		Address: "127.0.0.1:1",
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			return nil, errors.New("connection refused")
		},
	}
	if prober.Reachable(context.Background()) {
		t.Fatal("expected dial failure to report unreachable")
	}
}

func TestCheckDaemon(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()

	if result := CheckDaemon(context.Background(), addr, time.Second); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	_ = ln.Close()
	result := CheckDaemon(context.Background(), addr, time.Second)
	if result.Passed {
		t.Fatal("expected failure after listener closed")
	}
	if !strings.Contains(result.Detail, "unreachable") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(syncthing.APIKeyHeader) != "good-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"folders":[{"id":"a","label":"A","path":"/a"}]}`))
	}))
}

func TestCheckSyncthingAPI(t *testing.T) {
	srv := newAPIServer(t)
	defer srv.Close()

	good, _ := syncthing.NewClient(srv.URL, "good-key", srv.Client())
	if result := CheckSyncthingAPI(context.Background(), good); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}

	bad, _ := syncthing.NewClient(srv.URL, "bad-key", srv.Client())
	result := CheckSyncthingAPI(context.Background(), bad)
	if result.Passed {
		t.Fatal("expected failure for bad key")
	}
	if !strings.Contains(result.Detail, "invalid api key") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, nil); results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
}

func TestRunAll(t *testing.T) {
	srv := newAPIServer(t)
	defer srv.Close()

	cfg := config.Default()
	cfg.Syncthing.URL = srv.URL
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	client, _ := syncthing.NewClient(srv.URL, "good-key", srv.Client())

	results := RunAll(context.Background(), &cfg, client)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Fatalf("expected %s to pass, got: %s", r.Name, r.Detail)
		}
	}
}

func TestCheckHandler(t *testing.T) {
	if r := CheckHandler(config.Handler{Path: "None"}); !r.Passed || !strings.Contains(r.Detail, "disabled") {
		t.Fatalf("expected disabled handler to pass, got %#v", r)
	}

	script := filepath.Join(t.TempDir(), "on-sync")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write handler: %v", err)
	}
	if r := CheckHandler(config.Handler{Path: script, DryRun: true}); !r.Passed || !strings.Contains(r.Detail, "dry run") {
		t.Fatalf("expected executable handler to pass, got %#v", r)
	}

	if r := CheckHandler(config.Handler{Path: "clearly-not-present-handler"}); r.Passed {
		t.Fatalf("expected missing handler to fail, got %#v", r)
	}
}
