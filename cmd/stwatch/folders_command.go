package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stwatch/internal/folders"
	"stwatch/internal/syncthing"
)

func newFoldersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "List the folders the Syncthing daemon shares",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := syncthing.NewClient(cfg.Syncthing.URL, cfg.Syncthing.APIKey, nil)
			if err != nil {
				return err
			}
			dir := folders.NewDirectory(client)
			if err := dir.Refresh(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			list := dir.List()
			if len(list) == 0 {
				fmt.Fprintln(out, "No folders configured")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, f := range list {
				rows = append(rows, []string{f.Label, f.ID, f.Path})
			}
			fmt.Fprintln(out, renderTable([]string{"Label", "ID", "Path"}, rows, nil))
			return nil
		},
	}
}
