// Package cli provides the cobra command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/north/internal/core/ports/driving"
	"github.com/custodia-labs/north/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services the commands run against. Commands check for nil so the
// CLI degrades gracefully when a service is not configured.
var (
	syncRunner        driving.SyncRunner
	searchService     driving.SearchOrchestrator
	directoryService  driving.DirectoryService
	directoryImporter driving.DirectoryImporter
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "north",
	Short: "Search your construction documents",
	Long: `North keeps a Dropbox folder of construction documents synchronised
into a local search index and answers natural language questions about
projects, contractors and paperwork.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
}

// Configure injects the services the commands depend on.
func Configure(sync driving.SyncRunner, search driving.SearchOrchestrator, directory driving.DirectoryService, importer driving.DirectoryImporter) {
	syncRunner = sync
	searchService = search
	directoryService = directory
	directoryImporter = importer
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
