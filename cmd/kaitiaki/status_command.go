package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"kaitiaki/internal/status"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue counts and scanner state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var summary status.Summary
			if err := client.get("/api/status", &summary); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, summary)
			}
			renderStatus(cmd, summary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderStatus(cmd *cobra.Command, summary status.Summary) {
	out := cmd.OutOrStdout()

	rows := [][]string{
		{"pending", strconv.Itoa(summary.Pending)},
		{"processing", strconv.Itoa(summary.Processing)},
		{"completed", strconv.Itoa(summary.Completed)},
		{"failed", strconv.Itoa(summary.Failed)},
	}
	fmt.Fprintln(out, renderTable([]string{"STATUS", "TASKS"}, rows, []columnAlignment{alignLeft, alignRight}))
	fmt.Fprintf(out, "Documents found: %d\n", summary.DocumentsFound)

	if summary.LastScanAt == nil {
		fmt.Fprintln(out, "Last scan: never")
		return
	}
	line := fmt.Sprintf("Last scan: %s", summary.LastScanAt.Local().Format("2006-01-02 15:04:05"))
	if summary.LastScan != nil {
		line += fmt.Sprintf(" (seen %d, enqueued %d, skipped %d, errored %d)",
			summary.LastScan.Seen, summary.LastScan.Enqueued, summary.LastScan.Skipped, summary.LastScan.Errored)
	}
	fmt.Fprintln(out, line)

	if summary.Failed > 0 {
		warning := fmt.Sprintf("%d task(s) in terminal failed state; see 'kaitiaki queue list --status failed'", summary.Failed)
		if shouldColorize(out) {
			warning = "\x1b[33m" + warning + "\x1b[0m"
		}
		fmt.Fprintln(out, warning)
	}
}
