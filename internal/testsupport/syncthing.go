package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"stwatch/internal/syncthing"
)

// EventResponse scripts one reply of the fake /rest/events endpoint. A zero
// Status means 200 with Events as the body.
type EventResponse struct {
	Status int
	Events []syncthing.Event
}

// FakeSyncthing is an httptest-backed stand-in for the daemon REST API.
// Scripted event responses are served in order; once exhausted, event
// requests block until the client goes away, like an idle long-poll.
type FakeSyncthing struct {
	Server *httptest.Server
	APIKey string

	mu        sync.Mutex
	folders   []syncthing.Folder
	responses []EventResponse
	sinces    []int64
	configHit int
	done      chan struct{}
}

// NewFakeSyncthing starts a fake daemon and registers cleanup.
func NewFakeSyncthing(t testing.TB, apiKey string, folders ...syncthing.Folder) *FakeSyncthing {
	t.Helper()

	fake := &FakeSyncthing{APIKey: apiKey, folders: folders, done: make(chan struct{})}
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/system/config", fake.handleConfig)
	mux.HandleFunc("/rest/events", fake.handleEvents)
	fake.Server = httptest.NewServer(mux)
	t.Cleanup(fake.Server.Close)
	t.Cleanup(func() { close(fake.done) })
	return fake
}

// URL returns the fake daemon's base address.
func (f *FakeSyncthing) URL() string {
	return f.Server.URL
}

// SetFolders replaces the folder configuration served to clients.
func (f *FakeSyncthing) SetFolders(folders ...syncthing.Folder) {
	f.mu.Lock()
	f.folders = folders
	f.mu.Unlock()
}

// Script appends event responses.
func (f *FakeSyncthing) Script(responses ...EventResponse) {
	f.mu.Lock()
	f.responses = append(f.responses, responses...)
	f.mu.Unlock()
}

// Sinces returns the since parameter of every event request received.
func (f *FakeSyncthing) Sinces() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.sinces...)
}

// ConfigRequests counts folder configuration fetches.
func (f *FakeSyncthing) ConfigRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configHit
}

func (f *FakeSyncthing) authorized(w http.ResponseWriter, r *http.Request) bool {
	if f.APIKey != "" && r.Header.Get(syncthing.APIKeyHeader) != f.APIKey {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

func (f *FakeSyncthing) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	f.mu.Lock()
	f.configHit++
	cfg := syncthing.SystemConfig{Version: 37, Folders: append([]syncthing.Folder(nil), f.folders...)}
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(cfg)
}

func (f *FakeSyncthing) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	since, _ := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)

	f.mu.Lock()
	f.sinces = append(f.sinces, since)
	var (
		resp EventResponse
		ok   bool
	)
	if len(f.responses) > 0 {
		resp, f.responses, ok = f.responses[0], f.responses[1:], true
	}
	f.mu.Unlock()

	if !ok {
		select {
		case <-r.Context().Done():
		case <-f.done:
		}
		return
	}
	if resp.Status != 0 && resp.Status != http.StatusOK {
		w.WriteHeader(resp.Status)
		return
	}
	events := resp.Events
	if events == nil {
		events = []syncthing.Event{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

// ItemEvent builds an item event with the given id and data fields.
func ItemEvent(t testing.TB, id int64, eventType, folder, item, action string) syncthing.Event {
	t.Helper()

	data, err := json.Marshal(syncthing.ItemData{
		Folder: folder,
		Item:   item,
		Action: action,
		Type:   "file",
	})
	if err != nil {
		t.Fatalf("marshal item data: %v", err)
	}
	return syncthing.Event{
		ID:       id,
		GlobalID: id,
		Type:     eventType,
		Time:     "2024-01-01T00:00:00Z",
		Data:     data,
	}
}
