package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import [folder]",
	Short: "Import a vault of contractor notes",
	Long: `Reads a folder of markdown notes with YAML frontmatter and loads
them into the contractor directory and work log. Company notes carry
"type: company", work log notes "type: worklog". Re-importing an
edited vault overwrites the previous entries.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if directoryImporter == nil {
		return errors.New("import service not configured")
	}

	report, err := directoryImporter.Import(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	cmd.Println("Import complete")
	cmd.Printf("  companies:    %d\n", report.Companies)
	cmd.Printf("  work entries: %d\n", report.WorkEntries)
	if report.Skipped > 0 {
		cmd.Printf("  skipped:      %d\n", report.Skipped)
	}
	return nil
}
