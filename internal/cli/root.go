// Package cli provides the command-line interface for docsearch.
package cli

import (
	"github.com/raphaelgruber/docsearch/internal/client"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string

	// API client, created before every command runs
	api *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "docsearch",
	Short: "Semantic search over PDF documents",
	Long: `Docsearch ingests PDF documents into a vector index and answers
semantic queries against them.

Documents are uploaded or pulled from the server's data directory, split
into chunks, embedded, and stored in Qdrant. Searches return the closest
chunks with their source files and similarity scores.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		api = client.New(serverURL)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default DOCSEARCH_SERVER_URL or http://localhost:8080)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(searchCmd)
}
