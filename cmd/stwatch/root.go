package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	flags := &watchFlags{}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:           "stwatch [flags] [handler-flags...] [-- handler-args...]",
		Short:         "Watch a Syncthing daemon's activity",
		Long: `Watch a Syncthing daemon's activity and hand each item event to a handler.

Flags stwatch does not recognise, and everything after "--", are appended to
the handler's command line after the --payload argument.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, ctx, args)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Configuration file path")
	pf.StringVar(&flags.url, "url", "", "Syncthing URL (overrides SYNCTHING_URL)")
	pf.StringVar(&flags.apiKey, "api", "", "Syncthing API key (overrides SYNCTHING_API)")
	pf.StringVar(&flags.event, "event", "", "Event type to follow: ItemStarted or ItemFinished")
	pf.StringVar(&flags.script, "script", "", "Handler executable followed by its arguments, e.g. \"post-process --mode fast\"")
	pf.BoolVar(&flags.dryRun, "dry-run", false, "Log handler invocations instead of running them")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "Only log warnings and errors")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newFoldersCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
