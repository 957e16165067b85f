package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kaitiaki/internal/scanner"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Trigger an intake scan cycle now",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var summary scanner.Summary
			if err := client.post("/api/scan", &summary); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, summary)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scan complete: seen %d, enqueued %d, skipped %d, errored %d (%s)\n",
				summary.Seen, summary.Enqueued, summary.Skipped, summary.Errored, summary.Duration)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
