package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stwatch/internal/config"
	"stwatch/internal/logging"
	"stwatch/internal/services"
)

func TestOpenFromConfigWritesRotatingJSONFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, closeFn, err := logging.OpenFromConfig(&cfg, "", "run-abc")
	if err != nil {
		t.Fatalf("OpenFromConfig returned error: %v", err)
	}
	logger.Info("Starting up", logging.Int64(logging.FieldCursor, 12))
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "stwatch.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", content, err)
	}
	if entry["msg"] != "Starting up" {
		t.Fatalf("unexpected msg %v", entry["msg"])
	}
	if entry["session_id"] != "run-abc" {
		t.Fatalf("expected session id, got %v", entry["session_id"])
	}
	if entry["cursor"] != float64(12) {
		t.Fatalf("expected cursor attr, got %v", entry["cursor"])
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, closeFn, err := logging.Open(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "watcher").Info("message without caller", logging.String("state", "polling"))
	_ = closeFn()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if strings.Contains(text, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", text)
	}
	if !strings.Contains(text, "INFO [watcher] – message without caller state=polling") {
		t.Fatalf("unexpected console line %q", text)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, closeFn, err := logging.Open(logging.Options{
		Format:      "console",
		Level:       "debug",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	logger.Debug("message with caller")
	_ = closeFn()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestOpenRejectsUnknownFormat(t *testing.T) {
	if _, _, err := logging.Open(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsEventFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "context.log")
	logger, closeFn, err := logging.Open(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	ctx := services.WithFolderID(services.WithEventID(context.Background(), 42), "abcd-1234")
	logging.WithContext(ctx, logger).Info("dispatched")
	_ = closeFn()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "Event #42 (abcd-1234) – dispatched") {
		t.Fatalf("expected event subject in console line, got %q", content)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, closeFn, err := logging.Open(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	logging.WarnWithContext(logger, "folder unresolved", "folder_unresolved",
		logging.String(logging.FieldImpact, "event skipped"),
	)
	_ = closeFn()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(content, &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry[logging.FieldEventType] != "folder_unresolved" {
		t.Fatalf("expected event_type, got %v", entry[logging.FieldEventType])
	}
	if entry[logging.FieldImpact] != "event skipped" {
		t.Fatalf("expected caller-provided impact kept, got %v", entry[logging.FieldImpact])
	}
	if entry[logging.FieldErrorHint] == nil {
		t.Fatal("expected default error_hint injected")
	}
}
