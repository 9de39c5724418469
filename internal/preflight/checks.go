package preflight

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"stwatch/internal/config"
	"stwatch/internal/syncthing"
)

// CheckSyncthingAPI verifies that the REST API answers and accepts the key.
// Unlike the liveness probe this is an application-level request.
func CheckSyncthingAPI(ctx context.Context, client *syncthing.Client) Result {
	const name = "Syncthing API"

	if client == nil {
		return Result{Name: name, Detail: "client not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cfg, err := client.Config(checkCtx)
	if err != nil {
		var statusErr *syncthing.StatusError
		if errors.As(err, &statusErr) {
			switch statusErr.Code {
			case http.StatusUnauthorized, http.StatusForbidden:
				return Result{Name: name, Detail: "auth failed (invalid api key)"}
			default:
				return Result{Name: name, Detail: fmt.Sprintf("config request failed (%d)", statusErr.Code)}
			}
		}
		return Result{Name: name, Detail: fmt.Sprintf("config request failed (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("authenticated, %d folders", len(cfg.Folders))}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckHandler verifies that the configured handler resolves to an
// executable. A disabled handler passes.
func CheckHandler(h config.Handler) Result {
	const name = "Handler"

	if !h.Enabled() {
		return Result{Name: name, Passed: true, Detail: "disabled (log only)"}
	}
	path := strings.TrimSpace(h.Path)
	resolved, err := exec.LookPath(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%q not found or not executable", path)}
	}
	detail := resolved
	if h.DryRun {
		detail += " (dry run)"
	}
	return Result{Name: name, Passed: true, Detail: detail}
}
