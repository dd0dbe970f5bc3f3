package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/north/internal/core/ports/driving"
)

var (
	searchLimit    int
	searchJSON     bool
	searchFollowUp bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Searches the indexed documents with natural language. Entities in
the query (project, contractor, document type) drive filtered search
first, with progressively broader fallbacks when nothing matches.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().BoolVar(&searchFollowUp, "follow-up", false, "carry entities over from the previous query")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	ctx := cmd.Context()
	opts := driving.SearchOptions{
		MaxResults: searchLimit,
	}

	var (
		response *driving.SearchResponse
		err      error
	)
	if searchFollowUp {
		response, err = searchService.SearchWithContext(ctx, query, opts)
	} else {
		response, err = searchService.Search(ctx, query, opts)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, response)
	}

	return outputSearchTable(cmd, response)
}

func outputSearchJSON(cmd *cobra.Command, response *driving.SearchResponse) error {
	data, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, response *driving.SearchResponse) error {
	if len(response.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for i, result := range response.Results {
		cmd.Printf("[%d] %s (%.2f)\n", i+1, result.Document.Name, result.Score)
		cmd.Printf("    %s\n", result.Document.Path)
		if result.FromChunks {
			cmd.Printf("    matched %d section(s)\n", result.MatchedChunks)
		}
	}

	if response.Refined {
		cmd.Println()
		cmd.Println("(query was broadened to find these)")
	}
	return nil
}
