package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"stwatch/internal/activity"
	"stwatch/internal/logging"
)

// Dispatcher consumes one activity payload.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload activity.Payload) error
}

// Func adapts a function to Dispatcher.
type Func func(ctx context.Context, payload activity.Payload) error

// Dispatch calls f.
func (f Func) Dispatch(ctx context.Context, payload activity.Payload) error {
	return f(ctx, payload)
}

// Multi runs each dispatcher in order. Every dispatcher runs even when an
// earlier one fails; the failures are joined.
type Multi []Dispatcher

// Dispatch implements Dispatcher.
func (m Multi) Dispatch(ctx context.Context, payload activity.Payload) error {
	var errs []error
	for _, d := range m {
		if d == nil {
			continue
		}
		if err := d.Dispatch(ctx, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogDispatcher writes the fixed-width activity line at info level.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher returns a dispatcher that logs through logger.
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logging.NewComponentLogger(logger, "activity")}
}

// Dispatch implements Dispatcher.
func (d *LogDispatcher) Dispatch(ctx context.Context, payload activity.Payload) error {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "activity"),
		logging.String("folder_label", payload.FolderLabel),
		logging.String("path", payload.Path),
	}
	if payload.Failed() {
		attrs = append(attrs,
			logging.String("sync_error", payload.ErrorText()),
			logging.Alert("sync_error"),
		)
	}
	logging.WithContext(ctx, d.logger).Info(activity.Line(payload), logging.Args(attrs...)...)
	return nil
}
