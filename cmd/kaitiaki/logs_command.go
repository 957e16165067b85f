package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent lifecycle events",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.RecentLifecycle(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No lifecycle events recorded.")
				return nil
			}

			out := cmd.OutOrStdout()
			for _, entry := range entries {
				line := fmt.Sprintf("%s  %-20s %s",
					entry.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					entry.EventType,
					entry.Message)
				if entry.DocumentID != "" {
					line += fmt.Sprintf(" [%s]", entry.DocumentID)
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of events to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
