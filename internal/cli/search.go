package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var searchTopK int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the indexed documents",
	Long: `Run a semantic query against the indexed document chunks.

Results are ranked by similarity; scores are cosine distance, lower is
closer.

Examples:
  docsearch search "termination clauses"
  docsearch search "revenue projections" -n 10`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "limit", "n", 0, "max results (default: server setting)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	resp, err := api.Search(context.Background(), args[0], searchTopK)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(resp.Results) == 0 {
		if resp.Message != "" {
			fmt.Println(resp.Message)
		} else {
			fmt.Println("No results found.")
		}
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(resp.Results))
	for i, result := range resp.Results {
		fmt.Printf("%d. %s (score %.4f)\n", i+1, result.Document, result.Score)
		content := result.Content
		if len(content) > 200 {
			content = content[:200] + "..."
		}
		fmt.Printf("   %s\n\n", content)
	}
	return nil
}
