package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/north/internal/core/domain"
	"github.com/custodia-labs/north/internal/core/ports/driving"
)

var (
	askLimit    int
	askMinScore float64
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask about contractors and suppliers",
	Long: `Answers questions about the contractor and supplier directory and
the per-project work history: who was hired for a project, how to
reach someone, which companies do a kind of work.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askLimit, "limit", "n", 0, "maximum number of results (0 for default)")
	askCmd.Flags().Float64Var(&askMinScore, "min-score", 0, "drop results scoring below this (0 for default)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if directoryService == nil {
		return errors.New("directory service not configured")
	}

	answer, err := directoryService.Ask(cmd.Context(), args[0], driving.DirectoryOptions{
		MinScore:   askMinScore,
		MaxResults: askLimit,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if len(answer.Results) == 0 {
		cmd.Println("No matches found.")
		return nil
	}

	for _, result := range answer.Results {
		printDirectoryResult(cmd, result)
	}
	if answer.Complete {
		cmd.Println()
		cmd.Printf("%d compan(ies) listed.\n", len(answer.Results))
	}
	return nil
}

func printDirectoryResult(cmd *cobra.Command, result domain.DirectoryResult) {
	name := result.Company.Name
	cmd.Printf("- %s\n", name)

	if len(result.Company.Services) > 0 {
		cmd.Printf("    %s\n", strings.Join(result.Company.Services, ", "))
	}
	if contact := formatContact(result.Company); contact != "" {
		cmd.Printf("    %s\n", contact)
	}
	if result.ContactUnavailable {
		cmd.Println("    (no contact details on file)")
	}
	if result.Work != nil && len(result.Work.Scope) > 0 {
		cmd.Printf("    %s\n", strings.Join(result.Work.Scope, "; "))
	}
}

func formatContact(c domain.Company) string {
	var parts []string
	if c.Phone != "" {
		parts = append(parts, c.Phone)
	}
	parts = append(parts, c.Email...)
	return strings.Join(parts, "  ")
}
