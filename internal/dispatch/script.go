package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"stwatch/internal/activity"
	"stwatch/internal/logging"
	"stwatch/internal/services"
)

// PayloadFlag precedes the JSON payload on the handler command line.
const PayloadFlag = "--payload"

// Runner starts a process and waits for it to exit.
type Runner interface {
	Run(ctx context.Context, binary string, args []string) error
}

// ScriptOptions configures a ScriptDispatcher.
type ScriptOptions struct {
	Path        string
	Args        []string
	PassThrough []string
	DryRun      bool
	Runner      Runner
	Logger      *slog.Logger
}

// ScriptDispatcher invokes the external handler once per payload:
//
//	<path> [args...] --payload <json> [pass-through...]
//
// The handler's exit status is not inspected. Only failures to start it are
// reported.
type ScriptDispatcher struct {
	path        string
	args        []string
	passThrough []string
	dryRun      bool
	runner      Runner
	logger      *slog.Logger
}

// NewScriptDispatcher builds a handler dispatcher.
func NewScriptDispatcher(opts ScriptOptions) *ScriptDispatcher {
	runner := opts.Runner
	if runner == nil {
		runner = commandRunner{stdout: os.Stdout, stderr: os.Stderr}
	}
	return &ScriptDispatcher{
		path:        strings.TrimSpace(opts.Path),
		args:        append([]string(nil), opts.Args...),
		passThrough: append([]string(nil), opts.PassThrough...),
		dryRun:      opts.DryRun,
		runner:      runner,
		logger:      logging.NewComponentLogger(opts.Logger, "handler"),
	}
}

// Argv returns the arguments passed to the handler for payload, excluding
// the handler path itself.
func (s *ScriptDispatcher) Argv(payload activity.Payload) ([]string, error) {
	encoded, err := payload.MarshalIndented()
	if err != nil {
		return nil, err
	}
	argv := make([]string, 0, len(s.args)+len(s.passThrough)+2)
	argv = append(argv, s.args...)
	argv = append(argv, PayloadFlag, encoded)
	argv = append(argv, s.passThrough...)
	return argv, nil
}

// Dispatch implements Dispatcher.
func (s *ScriptDispatcher) Dispatch(ctx context.Context, payload activity.Payload) error {
	argv, err := s.Argv(payload)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "handler", "encode payload", "", err)
	}
	logger := logging.WithContext(ctx, s.logger)

	if s.dryRun {
		logger.Info("dry run: handler not started",
			logging.String(logging.FieldEventType, "handler_dry_run"),
			logging.String("handler", s.path),
			logging.Any("argv", argv),
		)
		return nil
	}

	logger.Debug("starting handler", logging.String("handler", s.path), logging.Int("args", len(argv)))
	err = s.runner.Run(ctx, s.path, argv)
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		logger.Debug("handler exited with non-zero status",
			logging.String("handler", s.path),
			logging.Int("exit_code", exitErr.ExitCode()),
		)
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return services.Wrap(services.ErrExternalTool, "handler", "start", s.path, err)
}

type commandRunner struct {
	stdout io.Writer
	stderr io.Writer
}

func (r commandRunner) Run(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}
	return cmd.Wait()
}
