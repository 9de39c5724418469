package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"stwatch/internal/config"
	"stwatch/internal/history"
	"stwatch/internal/preflight"
	"stwatch/internal/syncthing"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the Syncthing daemon, local directories, and watcher state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			client, err := syncthing.NewClient(cfg.Syncthing.URL, cfg.Syncthing.APIKey, nil)
			if err != nil {
				return err
			}

			lines := renderSectionHeader("Syncthing", colorize)
			lines = append(lines, renderStatusLine("URL", statusInfo, cfg.Syncthing.URL, colorize))
			lines = append(lines, renderStatusLine("Event", statusInfo, cfg.Syncthing.EventType, colorize))
			for _, result := range preflight.RunAll(cmd.Context(), cfg, client) {
				lines = append(lines, renderResult(result, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Watcher", colorize)...)
			lines = append(lines, watcherStatusLines(cmd.Context(), cfg, colorize)...)

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
}

func watcherStatusLines(ctx context.Context, cfg *config.Config, colorize bool) []string {
	var lines []string

	running, pid := watcherRunning(cfg)
	if running {
		msg := "running"
		if pid > 0 {
			msg = fmt.Sprintf("running (pid %d)", pid)
		}
		lines = append(lines, renderStatusLine("Watcher", statusOK, msg, colorize))
	} else {
		lines = append(lines, renderStatusLine("Watcher", statusWarn, "not running", colorize))
	}

	handler := "log only"
	if cfg.Handler.Enabled() {
		handler = cfg.Handler.Path
		if cfg.Handler.DryRun {
			handler += " (dry run)"
		}
	}
	lines = append(lines, renderStatusLine("Handler", statusInfo, handler, colorize))
	lines = append(lines, renderStatusLine("Notifications", statusInfo, yesNo(strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""), colorize))

	if !cfg.History.Enabled {
		return append(lines, renderStatusLine("History", statusInfo, "disabled", colorize))
	}
	if _, err := os.Stat(cfg.HistoryPath()); err != nil {
		return append(lines, renderStatusLine("History", statusInfo, "no history recorded yet", colorize))
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return append(lines, renderStatusLine("History", statusError, err.Error(), colorize))
	}
	defer store.Close()

	count, err := store.Count(ctx)
	if err != nil {
		return append(lines, renderStatusLine("History", statusError, err.Error(), colorize))
	}
	lines = append(lines, renderStatusLine("History", statusInfo, fmt.Sprintf("%d activities recorded", count), colorize))
	state, ok, err := store.LastCursor(ctx)
	switch {
	case err != nil:
		lines = append(lines, renderStatusLine("Last cursor", statusError, err.Error(), colorize))
	case ok:
		msg := fmt.Sprintf("%d at %s", state.Cursor, state.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
		lines = append(lines, renderStatusLine("Last cursor", statusInfo, msg, colorize))
	default:
		lines = append(lines, renderStatusLine("Last cursor", statusInfo, "none", colorize))
	}
	return lines
}

// watcherRunning reports whether another process holds the watcher lock,
// along with the pid recorded next to it.
func watcherRunning(cfg *config.Config) (bool, int) {
	lock := flock.New(cfg.LockPath())
	acquired, err := lock.TryLock()
	if err != nil {
		return false, 0
	}
	if acquired {
		_ = lock.Unlock()
		return false, 0
	}
	raw, err := os.ReadFile(cfg.PIDPath())
	if err != nil {
		return true, 0
	}
	pid, _ := strconv.Atoi(strings.TrimSpace(string(raw)))
	return true, pid
}
