package watcher

import (
	"context"

	"stwatch/internal/activity"
	"stwatch/internal/folders"
	"stwatch/internal/logging"
	"stwatch/internal/services"
	"stwatch/internal/syncthing"
)

// process classifies one batch in order. Every event of the followed type
// moves the cursor once its dispatch decision is made. A folder refresh
// failure stops the batch before the undecided event so the next query
// fetches it again; cancellation stops it the same way.
func (w *Watcher) process(ctx context.Context, events []syncthing.Event) error {
	moved := false
	defer func() {
		if moved {
			w.checkpoint(context.WithoutCancel(ctx))
		}
	}()
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if event.Type != w.eventType {
			continue
		}
		if err := w.handle(ctx, event); err != nil {
			return err
		}
		if w.advance(event.ID) {
			moved = true
		}
	}
	return nil
}

// handle dispatches one event. It returns an error only when no decision
// could be made about the event.
func (w *Watcher) handle(ctx context.Context, event syncthing.Event) error {
	logger := w.logger.With(logging.Int64(logging.FieldEventID, event.ID))

	data, err := event.Item()
	if err != nil {
		logging.WarnWithContext(logger, "event data unreadable; skipping", "event_decode_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this event is skipped"),
		)
		return nil
	}

	folder, ok, err := w.resolve(ctx, data.Folder)
	if err != nil {
		return err
	}
	if !ok {
		logging.WarnWithContext(logger, "Folder ID "+data.Folder+" cannot be accessed. Skipping this.", "folder_unresolved",
			logging.String(logging.FieldFolderID, data.Folder),
			logging.String(logging.FieldErrorHint, "check that the folder is shared with this device"),
			logging.String(logging.FieldImpact, "this event is skipped"),
		)
		return nil
	}

	payload := activity.Build(event, data, folder)
	dispatchCtx := services.WithEventID(ctx, event.ID)
	dispatchCtx = services.WithFolderID(dispatchCtx, folder.ID)
	if err := w.dispatcher.Dispatch(dispatchCtx, payload); err != nil {
		logging.WarnWithContext(logger, "activity dispatch failed", "dispatch_failed",
			logging.Error(err),
			logging.String(logging.FieldFolderID, folder.ID),
			logging.String("item", data.Item),
			logging.String(logging.FieldErrorHint, "check the handler path and its output"),
		)
	}
	return nil
}

// resolve looks a folder up, refreshing the directory once on a miss. A
// failed refresh is returned as an error; only a successful refresh that
// still misses reports the folder as unresolved.
func (w *Watcher) resolve(ctx context.Context, id string) (folders.Folder, bool, error) {
	if folder, ok := w.folders.Lookup(id); ok {
		return folder, true, nil
	}
	if err := w.folders.Refresh(ctx); err != nil {
		return folders.Folder{}, false, services.Wrap(services.ErrTransient, "watcher", "refresh folders", id, err)
	}
	folder, ok := w.folders.Lookup(id)
	return folder, ok, nil
}
