package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"stwatch/internal/activity"
	"stwatch/internal/history"
)

const (
	historyItemWidth  = 48
	historyErrorWidth = 40
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var errorsOnly bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently dispatched activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cfg.History.Enabled {
				fmt.Fprintln(out, "History is disabled ([history] enabled = false)")
				return nil
			}
			if _, err := os.Stat(cfg.HistoryPath()); os.IsNotExist(err) {
				fmt.Fprintln(out, "No activity recorded yet")
				return nil
			}
			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				if errorsOnly && !e.Payload.Failed() {
					continue
				}
				rows = append(rows, []string{
					strconv.FormatInt(e.EventID, 10),
					e.RecordedAt.Local().Format("2006-01-02 15:04:05"),
					e.Payload.FolderLabel,
					e.Payload.Action,
					e.Payload.Type,
					activity.Truncate(e.Payload.Item, historyItemWidth),
					e.Payload.ErrorText(),
				})
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No activity recorded yet")
				return nil
			}
			fmt.Fprintln(out, renderColumns([]tableColumn{
				{Header: "Event", Align: alignRight},
				{Header: "Recorded"},
				{Header: "Folder"},
				{Header: "Action"},
				{Header: "Type"},
				{Header: "Item"},
				{Header: "Error", MaxWidth: historyErrorWidth},
			}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().BoolVar(&errorsOnly, "errors", false, "Only show activity that failed to sync")
	return cmd
}
