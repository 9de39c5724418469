package preflight

import (
	"context"
	"time"

	"stwatch/internal/config"
	"stwatch/internal/syncthing"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the status checks for the given config. The API check is
// skipped when the daemon socket is not reachable.
func RunAll(ctx context.Context, cfg *config.Config, client *syncthing.Client) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	probeTimeout := time.Duration(cfg.Watcher.ProbeTimeout) * time.Second
	daemon := CheckDaemon(ctx, cfg.Syncthing.URL, probeTimeout)
	results = append(results, daemon)
	if daemon.Passed && client != nil {
		results = append(results, CheckSyncthingAPI(ctx, client))
	}

	results = append(results, CheckHandler(cfg.Handler))
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	return results
}
