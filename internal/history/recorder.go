package history

import (
	"context"
	"log/slog"
	"sync"

	"stwatch/internal/activity"
	"stwatch/internal/logging"
	"stwatch/internal/services"
)

// pruneEvery is how many recorded rows pass between prune sweeps.
const pruneEvery = 100

// Recorder writes dispatched payloads and cursor checkpoints to a Store.
// It satisfies the dispatcher contract without importing the dispatch package.
type Recorder struct {
	store      *Store
	maxEntries int
	logger     *slog.Logger

	mu      sync.Mutex
	pending int
}

// NewRecorder wraps store. maxEntries bounds the activity table; zero keeps everything.
func NewRecorder(store *Store, maxEntries int, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:      store,
		maxEntries: maxEntries,
		logger:     logging.NewComponentLogger(logger, "history"),
	}
}

// Dispatch records payload under the event and session ids carried by ctx.
func (r *Recorder) Dispatch(ctx context.Context, payload activity.Payload) error {
	if r == nil || r.store == nil {
		return nil
	}
	eventID, _ := services.EventIDFromContext(ctx)
	sessionID, _ := services.SessionIDFromContext(ctx)
	if err := r.store.Record(ctx, sessionID, eventID, payload); err != nil {
		return services.Wrap(services.ErrTransient, "history", "record", "Failed to record activity", err)
	}

	r.mu.Lock()
	r.pending++
	sweep := r.pending >= pruneEvery
	if sweep {
		r.pending = 0
	}
	r.mu.Unlock()

	if sweep {
		removed, err := r.store.Prune(ctx, r.maxEntries)
		if err != nil {
			logging.WarnWithContext(r.logger, "history prune failed", "history_prune_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "history grows until the next sweep"),
			)
		} else if removed > 0 {
			r.logger.Debug("history pruned", logging.Int64("removed", removed))
		}
	}
	return nil
}

// Checkpoint persists the watcher cursor.
func (r *Recorder) Checkpoint(ctx context.Context, cursor int64) error {
	if r == nil || r.store == nil {
		return nil
	}
	sessionID, _ := services.SessionIDFromContext(ctx)
	if err := r.store.SaveCursor(ctx, sessionID, cursor); err != nil {
		return services.Wrap(services.ErrTransient, "history", "checkpoint", "Failed to save cursor", err)
	}
	return nil
}
