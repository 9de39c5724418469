package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stwatch/internal/watchrun"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [-- handler-args...]",
		Short: "Run the watcher in the foreground (default command)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, ctx, args)
		},
	}
}

func runWatch(cmd *cobra.Command, ctx *commandContext, args []string) error {
	passThrough, err := passThroughArgs(cmd, args)
	if err != nil {
		return err
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	cfg.Handler.PassThrough = passThrough
	return watchrun.Run(cmd.Context(), cfg, watchrun.Options{LogLevel: ctx.logLevel()})
}

// passThroughArgs returns the arguments given after "--". Positional
// arguments before it are rejected.
func passThroughArgs(cmd *cobra.Command, args []string) ([]string, error) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		if len(args) > 0 {
			return nil, fmt.Errorf("unexpected arguments %q (pass handler arguments after --)", args)
		}
		return nil, nil
	}
	if dash > 0 {
		return nil, fmt.Errorf("unexpected arguments %q (pass handler arguments after --)", args[:dash])
	}
	return append([]string(nil), args[dash:]...), nil
}
