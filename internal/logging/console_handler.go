package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// lockedWriter serializes writes from a handler and all of its clones.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write(p)
	return err
}

type field struct {
	key string
	val slog.Value
}

// consoleHandler renders one human-oriented line per record:
//
//	2024-01-01 12:00:00 INFO [watcher] Event #42 (abcd) – message key=value
//
// Records below info put each attribute on its own indented line instead.
type consoleHandler struct {
	out    *lockedWriter
	level  slog.Leveler
	source bool
	prefix string
	preset []field
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{out: &lockedWriter{w: w}, level: lvl, source: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.preset = append(append([]field(nil), h.preset...), collectFields(h.prefix, attrs)...)
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}

	fields := append([]field(nil), h.preset...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendField(fields, h.prefix, attr)
		return true
	})
	fields = lastWins(fields)

	var component, eventID, folderID string
	body := fields[:0:0]
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			component = plainValue(f.val)
			continue
		case FieldEventID:
			eventID = plainValue(f.val)
		case FieldFolderID:
			folderID = plainValue(f.val)
		}
		body = append(body, f)
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}

	var buf bytes.Buffer
	buf.WriteString(formatTimestamp(ts))
	buf.WriteString(" " + levelLabel(record.Level))
	if component != "" {
		buf.WriteString(" [" + component + "]")
	}
	if subject := composeSubject(eventID, folderID); subject != "" {
		buf.WriteString(" " + subject)
	}
	buf.WriteString(" – " + msg)
	if h.source {
		if src := recordSource(record); src != nil && src.File != "" {
			buf.WriteString(" [" + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line) + "]")
		}
	}

	if record.Level < slog.LevelInfo {
		buf.WriteByte('\n')
		for _, f := range body {
			buf.WriteString("    " + f.key + ": " + quotedValue(f.val) + "\n")
		}
	} else {
		for _, f := range body {
			if f.key == FieldEventID || f.key == FieldFolderID {
				continue
			}
			buf.WriteString(" " + f.key + "=" + quotedValue(f.val))
		}
		buf.WriteByte('\n')
	}
	return h.out.write(buf.Bytes())
}

// composeSubject renders "Event #42 (folder-id)" style prefixes.
func composeSubject(eventID, folderID string) string {
	eventID = strings.TrimSpace(eventID)
	folderID = strings.TrimSpace(folderID)
	switch {
	case eventID != "" && folderID != "":
		return "Event #" + eventID + " (" + folderID + ")"
	case eventID != "":
		return "Event #" + eventID
	case folderID != "":
		return "(" + folderID + ")"
	default:
		return ""
	}
}

func collectFields(prefix string, attrs []slog.Attr) []field {
	var out []field
	for _, a := range attrs {
		out = appendField(out, prefix, a)
	}
	return out
}

// appendField flattens groups into dotted keys.
func appendField(dst []field, prefix string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	val := attr.Value.Resolve()
	if val.Kind() == slog.KindGroup {
		inner := prefix
		if attr.Key != "" {
			inner = prefix + attr.Key + "."
		}
		for _, a := range val.Group() {
			dst = appendField(dst, inner, a)
		}
		return dst
	}
	key := prefix + attr.Key
	if attr.Key == "" {
		key = strings.TrimSuffix(prefix, ".")
	}
	if key == "" {
		return dst
	}
	return append(dst, field{key: key, val: val})
}

// lastWins keeps the first position of each key with its latest value.
func lastWins(fields []field) []field {
	if len(fields) < 2 {
		return fields
	}
	index := make(map[string]int, len(fields))
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		if i, ok := index[f.key]; ok {
			out[i].val = f.val
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

// recordSource mirrors slog.Record.Source (Go 1.25+) for older toolchains.
func recordSource(r slog.Record) *slog.Source {
	if r.PC == 0 {
		return nil
	}
	fs := runtime.CallersFrames([]uintptr{r.PC})
	f, _ := fs.Next()
	return &slog.Source{Function: f.Function, File: f.File, Line: f.Line}
}
