package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

type documentListing struct {
	Documents []struct {
		ID           string    `json:"id"`
		FileName     string    `json:"file_name"`
		SourcePath   string    `json:"source_path"`
		ContentType  string    `json:"content_type"`
		SizeBytes    int64     `json:"size_bytes"`
		DiscoveredAt time.Time `json:"discovered_at"`
	} `json:"documents"`
}

func newDocumentsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "documents",
		Short: "List ingested documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var listing documentListing
			if err := client.get("/api/documents", &listing); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, listing)
			}

			if len(listing.Documents) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No documents ingested yet.")
				return nil
			}
			rows := make([][]string, 0, len(listing.Documents))
			for _, doc := range listing.Documents {
				rows = append(rows, []string{
					doc.ID,
					doc.FileName,
					doc.ContentType,
					strconv.FormatInt(doc.SizeBytes, 10),
					doc.DiscoveredAt.Local().Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "FILE", "TYPE", "BYTES", "DISCOVERED"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
