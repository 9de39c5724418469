// Package activity turns Syncthing item events into the normalized records
// handed to dispatchers.
package activity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"

	"stwatch/internal/folders"
	"stwatch/internal/syncthing"
)

// Payload is the externally visible activity record. Field order and JSON
// keys are part of the handler contract.
type Payload struct {
	Time        string  `json:"time"`
	Action      string  `json:"action"`
	Type        string  `json:"type"`
	Item        string  `json:"item"`
	Error       *string `json:"error"`
	FolderLabel string  `json:"folder_label"`
	FolderID    string  `json:"folder_id"`
	Path        string  `json:"path"`
}

// Build assembles a payload from an item event and its resolved folder.
func Build(event syncthing.Event, data syncthing.ItemData, folder folders.Folder) Payload {
	var errText *string
	if data.Error != nil {
		msg := *data.Error
		errText = &msg
	}
	return Payload{
		Time:        event.Timestamp(data),
		Action:      data.Action,
		Type:        data.Type,
		Item:        data.Item,
		Error:       errText,
		FolderLabel: folder.Label,
		FolderID:    folder.ID,
		Path:        filepath.Join(folder.Path, data.Item),
	}
}

// Failed reports whether the daemon attached an error to the item.
func (p Payload) Failed() bool {
	return p.Error != nil && *p.Error != ""
}

// ErrorText returns the error message or an empty string.
func (p Payload) ErrorText() string {
	if p.Error == nil {
		return ""
	}
	return *p.Error
}

// MarshalIndented renders the payload the way handler processes receive it.
func (p Payload) MarshalIndented() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(p); err != nil {
		return "", fmt.Errorf("encode activity payload: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Line renders the fixed-width summary: folder label right-aligned to 15
// columns, item type, action, then the item path.
func Line(p Payload) string {
	return fmt.Sprintf("%s %s %s %s",
		padLeft(p.FolderLabel, 15),
		padRight(p.Type, 6),
		padRight(p.Action, 10),
		p.Item,
	)
}

// DisplayWidth counts terminal columns, treating wide and fullwidth runes as two.
func DisplayWidth(s string) int {
	cols := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			cols += 2
		default:
			cols++
		}
	}
	return cols
}

func padLeft(s string, cols int) string {
	if n := cols - DisplayWidth(s); n > 0 {
		return strings.Repeat(" ", n) + s
	}
	return s
}

func padRight(s string, cols int) string {
	if n := cols - DisplayWidth(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

// Truncate shortens s to at most cols display columns, marking the cut with "…".
func Truncate(s string, cols int) string {
	if cols <= 0 || DisplayWidth(s) <= cols {
		return s
	}
	var b strings.Builder
	used := 0
	for _, r := range s {
		w := DisplayWidth(string(r))
		if used+w > cols-1 {
			break
		}
		b.WriteRune(r)
		used += w
	}
	if utf8.RuneCountInString(b.String()) == 0 {
		return "…"
	}
	return b.String() + "…"
}
