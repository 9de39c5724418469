package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"stwatch/internal/activity"
	"stwatch/internal/folders"
	"stwatch/internal/logging"
	"stwatch/internal/services"
	"stwatch/internal/syncthing"
)

// Default loop timing.
const (
	DefaultPollInterval    = 10 * time.Second
	DefaultBackoffInterval = 60 * time.Second
	DefaultRestartGrace    = 10 * time.Second
	DefaultSeedTimeout     = 5 * time.Second
)

// EventSource performs one event query against the daemon.
type EventSource interface {
	Events(ctx context.Context, q syncthing.EventQuery) ([]syncthing.Event, error)
}

// Prober reports whether the daemon accepts connections.
type Prober interface {
	Reachable(ctx context.Context) bool
}

// FolderResolver maps folder ids to labels and roots.
type FolderResolver interface {
	Refresh(ctx context.Context) error
	Lookup(id string) (folders.Folder, bool)
}

// Dispatcher consumes activity payloads.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload activity.Payload) error
}

// CursorSink persists the cursor after each batch that moved it.
type CursorSink interface {
	Checkpoint(ctx context.Context, cursor int64) error
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures a Watcher. Zero durations fall back to the defaults.
type Options struct {
	EventType       string
	PollInterval    time.Duration
	BackoffInterval time.Duration
	RestartGrace    time.Duration
	SeedTimeout     time.Duration

	Source     EventSource
	Prober     Prober
	Folders    FolderResolver
	Dispatcher Dispatcher
	Cursor     CursorSink
	Logger     *slog.Logger
	Sleep      SleepFunc
}

// Watcher runs the poll loop. Only Run mutates the cursor and state; Cursor
// and State are safe to call from other goroutines.
type Watcher struct {
	eventType string
	poll      time.Duration
	backoff   time.Duration
	grace     time.Duration
	seedWait  time.Duration

	source     EventSource
	prober     Prober
	folders    FolderResolver
	dispatcher Dispatcher
	sink       CursorSink
	logger     *slog.Logger
	sleep      SleepFunc

	cursor atomic.Int64
	state  atomic.Int32
}

// New validates opts and builds a Watcher.
func New(opts Options) (*Watcher, error) {
	if opts.Source == nil || opts.Prober == nil || opts.Folders == nil || opts.Dispatcher == nil {
		return nil, errors.New("watcher requires an event source, prober, folder resolver, and dispatcher")
	}
	eventType := strings.TrimSpace(opts.EventType)
	if eventType == "" {
		eventType = syncthing.EventItemFinished
	}
	w := &Watcher{
		eventType:  eventType,
		poll:       orDefault(opts.PollInterval, DefaultPollInterval),
		backoff:    orDefault(opts.BackoffInterval, DefaultBackoffInterval),
		grace:      orDefault(opts.RestartGrace, DefaultRestartGrace),
		seedWait:   orDefault(opts.SeedTimeout, DefaultSeedTimeout),
		source:     opts.Source,
		prober:     opts.Prober,
		folders:    opts.Folders,
		dispatcher: opts.Dispatcher,
		sink:       opts.Cursor,
		logger:     logging.NewComponentLogger(opts.Logger, "watcher"),
		sleep:      opts.Sleep,
	}
	if w.sleep == nil {
		w.sleep = sleepContext
	}
	w.state.Store(int32(StateInitializing))
	return w, nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Cursor returns the highest event id processed so far.
func (w *Watcher) Cursor() int64 {
	return w.cursor.Load()
}

// State returns the current loop state.
func (w *Watcher) State() State {
	return State(w.state.Load())
}

func (w *Watcher) setState(s State) {
	w.state.Store(int32(s))
}

// EventType returns the event type the watcher follows.
func (w *Watcher) EventType() string {
	return w.eventType
}

// Run blocks until ctx is canceled or the daemon becomes unreachable. It
// returns ctx.Err() on cancellation and an error wrapping
// services.ErrUnreachable when the daemon is gone.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.setState(StateStopped)
	w.setState(StateInitializing)

	if !w.prober.Reachable(ctx) {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.logger.Error("Syncthing is not running. Stopping the watcher.",
			logging.String(logging.FieldEventType, "daemon_unreachable"),
			logging.String(logging.FieldErrorHint, "start Syncthing or check syncthing.url"),
		)
		return services.Wrap(services.ErrUnreachable, "watcher", "probe", "Syncthing is not running", nil)
	}

	if err := w.seed(ctx); err != nil {
		return err
	}
	w.logger.Info("Successfully connected to Syncthing")
	w.logger.Info(fmt.Sprintf("%d %s events occurred in the past", w.Cursor(), w.eventType),
		logging.Int64(logging.FieldCursor, w.Cursor()),
	)
	w.logger.Info("Starting watcher process")

	if err := w.folders.Refresh(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logging.WarnWithContext(w.logger, "initial folder refresh failed", "folder_refresh_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the API key and Syncthing availability"),
			logging.String(logging.FieldImpact, "folders are fetched again on the first event"),
		)
	}

	w.setState(StatePolling)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		events, err := w.source.Events(ctx, w.query(w.Cursor()))
		switch {
		case err == nil:
			if err := w.process(ctx, events); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if err := w.backOff(ctx, err); err != nil {
					return err
				}
				continue
			}
			if err := w.sleep(ctx, w.poll); err != nil {
				return err
			}
		case syncthing.IsNotModified(err):
			if err := w.sleep(ctx, w.poll); err != nil {
				return err
			}
		case ctx.Err() != nil:
			return ctx.Err()
		case syncthing.IsTransportError(err):
			if err := w.recoverStream(ctx, err); err != nil {
				return err
			}
		default:
			if err := w.backOff(ctx, err); err != nil {
				return err
			}
		}
	}
}

func (w *Watcher) query(since int64) syncthing.EventQuery {
	return syncthing.EventQuery{Since: since, Events: []string{w.eventType}}
}

// seed positions the cursor at the newest buffered event. Any failure other
// than cancellation leaves the cursor at zero.
func (w *Watcher) seed(ctx context.Context) error {
	seedCtx, cancel := context.WithTimeout(ctx, w.seedWait)
	defer cancel()

	// The daemon answers with the newest buffered event, or with nothing
	// once its own long-poll timeout passes, before the client gives up.
	q := w.query(0)
	q.Limit = 1
	q.Timeout = w.seedWait / 2
	events, err := w.source.Events(seedCtx, q)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !syncthing.IsNotModified(err) {
			w.logger.Info("no past events retrieved; starting from the beginning",
				logging.String(logging.FieldEventType, "seed_skipped"),
				logging.Error(err),
			)
		}
		return nil
	}
	if len(events) > 0 {
		w.advance(events[len(events)-1].ID)
		w.checkpoint(ctx)
	}
	return nil
}

func (w *Watcher) backOff(ctx context.Context, cause error) error {
	w.setState(StateBackoff)
	logging.WarnWithContext(w.logger, "event query failed; backing off", "events_backoff",
		logging.Error(cause),
		logging.Duration("retry_in", w.backoff),
		logging.Int64(logging.FieldCursor, w.Cursor()),
		logging.String(logging.FieldErrorHint, "check Syncthing logs and the API key"),
		logging.String(logging.FieldImpact, "events are fetched again after the backoff"),
	)
	if err := w.sleep(ctx, w.backoff); err != nil {
		return err
	}
	w.setState(StatePolling)
	return nil
}

// recoverStream waits out a daemon restart and decides whether to go on.
func (w *Watcher) recoverStream(ctx context.Context, cause error) error {
	logging.WarnWithContext(w.logger, "event stream interrupted; checking whether Syncthing restarted", "stream_interrupted",
		logging.Error(cause),
		logging.Duration("grace", w.grace),
		logging.String(logging.FieldImpact, "polling resumes if Syncthing is reachable"),
	)
	if err := w.sleep(ctx, w.grace); err != nil {
		return err
	}
	if w.prober.Reachable(ctx) {
		w.logger.Info("Syncthing reachable again; resuming",
			logging.Int64(logging.FieldCursor, w.Cursor()),
		)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	w.logger.Error("Syncthing may not be running. Stopping the watcher.",
		logging.String(logging.FieldEventType, "daemon_unreachable"),
		logging.String(logging.FieldErrorHint, "restart Syncthing, then restart stwatch"),
	)
	return services.Wrap(services.ErrUnreachable, "watcher", "recover", "Syncthing unreachable after stream interruption", cause)
}

// advance moves the cursor forward; lower ids are ignored.
func (w *Watcher) advance(id int64) bool {
	if id <= w.cursor.Load() {
		return false
	}
	w.cursor.Store(id)
	return true
}

func (w *Watcher) checkpoint(ctx context.Context) {
	if w.sink == nil {
		return
	}
	if err := w.sink.Checkpoint(ctx, w.Cursor()); err != nil {
		logging.WarnWithContext(w.logger, "cursor checkpoint failed", "cursor_checkpoint_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "status shows a stale cursor"),
		)
	}
}
