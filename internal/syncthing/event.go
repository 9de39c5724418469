package syncthing

import (
	"encoding/json"
	"fmt"
)

// Event type tags the watcher understands.
const (
	EventItemStarted  = "ItemStarted"
	EventItemFinished = "ItemFinished"
)

// Event is one entry of the daemon's event stream. Data stays raw until the
// caller asks for a typed view, so unknown event types never fail decoding.
type Event struct {
	ID       int64           `json:"id"`
	GlobalID int64           `json:"globalID"`
	Type     string          `json:"type"`
	Time     string          `json:"time"`
	Data     json.RawMessage `json:"data"`
}

// ItemData is the payload of ItemStarted and ItemFinished events.
type ItemData struct {
	Folder string  `json:"folder"`
	Item   string  `json:"item"`
	Action string  `json:"action"`
	Type   string  `json:"type"`
	Time   string  `json:"time,omitempty"`
	Error  *string `json:"error"`
}

// IsItemEvent reports whether the event carries ItemData.
func (e Event) IsItemEvent() bool {
	return e.Type == EventItemStarted || e.Type == EventItemFinished
}

// Item decodes the event data as ItemData. It fails for other event types.
func (e Event) Item() (ItemData, error) {
	if !e.IsItemEvent() {
		return ItemData{}, fmt.Errorf("event %d: type %q carries no item data", e.ID, e.Type)
	}
	var data ItemData
	if len(e.Data) == 0 {
		return data, fmt.Errorf("event %d: empty data", e.ID)
	}
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return ItemData{}, fmt.Errorf("event %d: decode item data: %w", e.ID, err)
	}
	return data, nil
}

// Timestamp returns the event time, preferring the top-level field and
// falling back to the time carried in the data payload.
func (e Event) Timestamp(data ItemData) string {
	if e.Time != "" {
		return e.Time
	}
	return data.Time
}
