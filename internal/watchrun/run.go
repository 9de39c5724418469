// Package watchrun wires configuration, logging, persistence, and the
// dispatch chain around a watcher and runs it until interrupted.
package watchrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"stwatch/internal/config"
	"stwatch/internal/dispatch"
	"stwatch/internal/folders"
	"stwatch/internal/history"
	"stwatch/internal/logging"
	"stwatch/internal/notifications"
	"stwatch/internal/preflight"
	"stwatch/internal/services"
	"stwatch/internal/syncthing"
	"stwatch/internal/watcher"
)

// ErrAlreadyRunning reports that another watcher holds the state directory lock.
var ErrAlreadyRunning = errors.New("another stwatch instance is running")

// Options configures watcher process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the watcher and blocks until it stops. A clean interrupt returns
// nil; an unreachable daemon returns an error wrapping services.ErrUnreachable.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) (runErr error) {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sessionID := uuid.NewString()
	ctx := services.WithSessionID(signalCtx, sessionID)

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	logger, closeLogs, err := logging.OpenFromConfig(cfg, opts.LogLevel, sessionID)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		logger.Info("Ending", logging.String(logging.FieldEventType, "watcher_stopped"))
		if closeErr := closeLogs(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "warn: unable to flush log file: %v\n", closeErr)
		}
	}()

	logger.Info("Starting up",
		logging.String(logging.FieldEventType, "watcher_starting"),
		logging.String("event", cfg.Syncthing.EventType),
		logging.Bool("handler_enabled", cfg.Handler.Enabled()),
		logging.Bool("dry_run", cfg.Handler.DryRun),
	)

	if check := preflight.CheckHandler(cfg.Handler); !check.Passed {
		logging.WarnWithContext(logger, "handler is not executable", "handler_missing",
			logging.String("handler", cfg.Handler.Path),
			logging.String("detail", check.Detail),
			logging.String(logging.FieldErrorHint, "fix handler.path or pass --script"),
			logging.String(logging.FieldImpact, "every activity logs a dispatch failure"),
		)
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		logger.Error("another watcher is running",
			logging.String(logging.FieldEventType, "lock_held"),
			logging.String(logging.FieldErrorHint, "stop the other stwatch process or remove a stale "+cfg.LockPath()),
			logging.String("lock", cfg.LockPath()),
		)
		return fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, cfg.LockPath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release watcher lock", logging.Error(err))
		}
	}()

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	recorder, closeHistory := openHistory(cfg, logger)
	defer closeHistory()

	notifier := notifications.NewService(cfg)

	logger.Info("Connecting to Syncthing hosted at " + cfg.Syncthing.URL)
	client, err := syncthing.NewClient(cfg.Syncthing.URL, cfg.Syncthing.APIKey, nil)
	if err != nil {
		return err
	}
	prober, err := preflight.NewProber(cfg.Syncthing.URL, seconds(cfg.Watcher.ProbeTimeout))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "watchrun", "probe address", cfg.Syncthing.URL, err)
	}

	watchOpts := watcher.Options{
		EventType:       cfg.Syncthing.EventType,
		PollInterval:    seconds(cfg.Watcher.PollInterval),
		BackoffInterval: seconds(cfg.Watcher.BackoffInterval),
		RestartGrace:    seconds(cfg.Watcher.RestartGrace),
		SeedTimeout:     seconds(cfg.Watcher.SeedTimeout),
		Source:          client,
		Prober:          prober,
		Folders:         folders.NewDirectory(client),
		Dispatcher:      BuildDispatcher(cfg, logger, notifier, recorder),
		Logger:          logger,
	}
	if recorder != nil {
		watchOpts.Cursor = recorder
	}
	w, err := watcher.New(watchOpts)
	if err != nil {
		return err
	}

	runErr = w.Run(ctx)
	switch {
	case runErr == nil, errors.Is(runErr, context.Canceled):
		return nil
	case errors.Is(runErr, services.ErrUnreachable):
		publishStopped(context.WithoutCancel(ctx), notifier, logger, cfg.Syncthing.URL, runErr)
	}
	return runErr
}

// BuildDispatcher assembles the per-activity chain: the activity log line,
// the external handler when one is configured, notifications, and history.
func BuildDispatcher(cfg *config.Config, logger *slog.Logger, notifier notifications.Service, recorder *history.Recorder) dispatch.Multi {
	chain := dispatch.Multi{dispatch.NewLogDispatcher(logger)}
	if cfg.Handler.Enabled() {
		chain = append(chain, dispatch.NewScriptDispatcher(dispatch.ScriptOptions{
			Path:        cfg.Handler.Path,
			Args:        cfg.Handler.Args,
			PassThrough: cfg.Handler.PassThrough,
			DryRun:      cfg.Handler.DryRun,
			Logger:      logger,
		}))
	}
	if notifier != nil {
		chain = append(chain, notifications.NewActivityDispatcher(notifier, cfg.Notifications.ErrorsOnly))
	}
	if recorder != nil {
		chain = append(chain, recorder)
	}
	return chain
}

func openHistory(cfg *config.Config, logger *slog.Logger) (*history.Recorder, func()) {
	if !cfg.History.Enabled {
		return nil, func() {}
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logging.WarnWithContext(logger, "history store unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on "+cfg.HistoryPath()),
			logging.String(logging.FieldImpact, "activity is not recorded for this run"),
		)
		return nil, func() {}
	}
	return history.NewRecorder(store, cfg.History.MaxEntries, logger), func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close history store", logging.Error(err))
		}
	}
}

func publishStopped(ctx context.Context, notifier notifications.Service, logger *slog.Logger, url string, cause error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := notifier.Publish(ctx, notifications.EventWatcherStopped, notifications.Payload{
		"url":    url,
		"reason": cause.Error(),
	}); err != nil {
		logger.Warn("watcher stop notification failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"),
		)
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func seconds(v int) time.Duration {
	return time.Duration(v) * time.Second
}
