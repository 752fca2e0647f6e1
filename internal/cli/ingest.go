package cli

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/docsearch/internal/client"
	"github.com/spf13/cobra"
)

var ingestDir string

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Queue PDF documents for ingestion",
	Long: `Upload PDF files for ingestion, or point the server at a directory
under its data path with --dir.

Ingestion runs in the background; use 'docsearch status <job-id>' to
track progress.

Examples:
  docsearch ingest report.pdf notes.pdf
  docsearch ingest --dir quarterly-reports`,
	Args: cobra.ArbitraryArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestDir, "dir", "d", "", "server-side directory to ingest instead of uploads")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if ingestDir != "" && len(args) > 0 {
		return fmt.Errorf("pass either files or --dir, not both")
	}
	if ingestDir == "" && len(args) == 0 {
		return fmt.Errorf("nothing to ingest: pass PDF files or --dir")
	}

	var accepted *client.IngestAccepted
	var err error
	if ingestDir != "" {
		accepted, err = api.IngestDir(ctx, ingestDir)
	} else {
		accepted, err = api.Ingest(ctx, args)
	}
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	fmt.Println(accepted.Message)
	if accepted.JobID != "" {
		fmt.Printf("Job: %s\n", accepted.JobID)
	}
	for _, f := range accepted.Files {
		fmt.Printf("  - %s\n", f)
	}
	return nil
}
