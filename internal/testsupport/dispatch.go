package testsupport

import (
	"context"
	"sync"

	"stwatch/internal/activity"
	"stwatch/internal/services"
)

// Delivery is one payload seen by a RecordingDispatcher.
type Delivery struct {
	EventID  int64
	FolderID string
	Payload  activity.Payload
}

// RecordingDispatcher captures every payload it receives. Err, when set, is
// returned from each Dispatch call after recording.
type RecordingDispatcher struct {
	Err error

	mu         sync.Mutex
	deliveries []Delivery
}

// Dispatch records payload along with the event and folder ids on ctx.
func (r *RecordingDispatcher) Dispatch(ctx context.Context, payload activity.Payload) error {
	eventID, _ := services.EventIDFromContext(ctx)
	folderID, _ := services.FolderIDFromContext(ctx)
	r.mu.Lock()
	r.deliveries = append(r.deliveries, Delivery{EventID: eventID, FolderID: folderID, Payload: payload})
	r.mu.Unlock()
	return r.Err
}

// Deliveries returns a copy of everything recorded so far.
func (r *RecordingDispatcher) Deliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Delivery(nil), r.deliveries...)
}

// Payloads returns only the recorded payloads.
func (r *RecordingDispatcher) Payloads() []activity.Payload {
	deliveries := r.Deliveries()
	out := make([]activity.Payload, 0, len(deliveries))
	for _, d := range deliveries {
		out = append(out, d.Payload)
	}
	return out
}
