package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"stwatch/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level       string
	Format      string
	OutputPaths []string
	Development bool
	SessionID   string

	// FilePath, when set, adds a size-rotated file sink.
	FilePath   string
	FileFormat string
	Rotation   Rotation
}

// Rotation bounds the size and age of the rotated log file.
type Rotation struct {
	MaxSizeMB     int
	MaxBackups    int
	RetentionDays int
}

// sinks tracks everything Open opened so a failure part way through, or the
// returned close function, releases all of it.
type sinks []io.Closer

func (s sinks) close() error {
	var errs []error
	for _, c := range s {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Open constructs a slog logger and a close function that releases file
// sinks. The close function is never nil.
func Open(opts Options) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))
	withSource := opts.Development || level.Level() <= slog.LevelDebug

	var opened sinks
	fail := func(err error) (*slog.Logger, func() error, error) {
		_ = opened.close()
		return nil, func() error { return nil }, err
	}

	out, files, err := openOutputs(opts.OutputPaths)
	opened = append(opened, files...)
	if err != nil {
		return fail(err)
	}
	primary, err := formatHandler(opts.Format, out, level, withSource)
	if err != nil {
		return fail(err)
	}
	handlers := []slog.Handler{primary}

	if path := strings.TrimSpace(opts.FilePath); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fail(fmt.Errorf("create log directory: %w", err))
		}
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    opts.Rotation.MaxSizeMB,
			MaxBackups: opts.Rotation.MaxBackups,
			MaxAge:     opts.Rotation.RetentionDays,
		}
		opened = append(opened, rotator)
		format := opts.FileFormat
		if strings.TrimSpace(format) == "" {
			format = opts.Format
		}
		file, err := formatHandler(format, rotator, level, withSource)
		if err != nil {
			return fail(err)
		}
		handlers = append(handlers, file)
	}

	handler := tee(handlers...)
	if opts.SessionID != "" {
		handler = withStamp(handler, slog.String(FieldSessionID, opts.SessionID))
	}
	return slog.New(handler), opened.close, nil
}

// OpenFromConfig creates the watcher logger: console output on stdout plus a
// JSON file rotated by lumberjack under the log directory. An empty level
// falls back to logging.level.
func OpenFromConfig(cfg *config.Config, level, sessionID string) (*slog.Logger, func() error, error) {
	if cfg == nil {
		return Open(Options{Level: level, SessionID: sessionID})
	}
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	opts := Options{
		Level:      level,
		Format:     cfg.Logging.Format,
		SessionID:  sessionID,
		FileFormat: "json",
		Rotation: Rotation{
			MaxSizeMB:     cfg.Logging.MaxSizeMB,
			MaxBackups:    cfg.Logging.MaxBackups,
			RetentionDays: cfg.Logging.RetentionDays,
		},
	}
	if cfg.Paths.LogDir != "" {
		opts.FilePath = cfg.LogPath()
	}
	return Open(opts)
}

func formatHandler(format string, w io.Writer, level *slog.LevelVar, withSource bool) (slog.Handler, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		return newPrettyHandler(w, level, withSource), nil
	case "json":
		return newJSONHandler(w, level, withSource), nil
	}
	return nil, fmt.Errorf("unsupported log format %q (want console or json)", format)
}

func parseLevel(s string) slog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// openOutputs resolves "stdout", "stderr" and file paths into one writer.
// Duplicates are ignored and an empty list means stdout.
func openOutputs(paths []string) (io.Writer, []io.Closer, error) {
	var (
		writers []io.Writer
		files   []io.Closer
		seen    []string
	)
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" || slices.Contains(seen, p) {
			continue
		}
		seen = append(seen, p)
		switch p {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
				return nil, files, fmt.Errorf("create log directory: %w", err)
			}
			f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, files, fmt.Errorf("open log output: %w", err)
			}
			writers = append(writers, f)
			files = append(files, f)
		}
	}
	if len(writers) == 0 {
		return os.Stdout, files, nil
	}
	return io.MultiWriter(writers...), files, nil
}
