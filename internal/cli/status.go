package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the state of an ingestion job",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	record, err := api.Status(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	fmt.Printf("Job: %s\n", record.ID)
	fmt.Printf("  Status: %s\n", record.Status)
	if len(record.Files) > 0 {
		fmt.Printf("  Processed files (%d):\n", len(record.Files))
		for _, f := range record.Files {
			fmt.Printf("    - %s\n", f)
		}
	}
	if record.Error != "" {
		fmt.Printf("  Error: %s\n", record.Error)
	}
	return nil
}
