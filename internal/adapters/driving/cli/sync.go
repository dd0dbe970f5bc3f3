package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/north/internal/core/domain"
)

var syncFull bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise the watched Dropbox folder",
	Long: `Runs one sync pass against the watched folder. Incremental when a
usable cursor exists, full otherwise. Use --full to force a complete
resync.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "force a full resync")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if syncRunner == nil {
		return errors.New("sync service not configured")
	}

	ctx := cmd.Context()

	var (
		run *domain.SyncRun
		err error
	)
	if syncFull {
		cmd.Println("Running full sync...")
		run, err = syncRunner.FullSync(ctx)
	} else {
		cmd.Println("Running sync...")
		run, err = syncRunner.RunDaily(ctx)
	}
	if err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			return errors.New("a sync is already running")
		}
		return fmt.Errorf("sync failed: %w", err)
	}

	printRun(cmd, run)
	return nil
}

func printRun(cmd *cobra.Command, run *domain.SyncRun) {
	mode := "incremental"
	if run.Full {
		mode = "full"
	}
	cmd.Printf("Sync complete (%s) in %s\n", mode, run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))
	cmd.Printf("  processed: %d\n", run.Processed)
	cmd.Printf("  indexed:   %d (%d added, %d modified)\n", run.Indexed, run.Added, run.Modified)
	if run.Deleted > 0 {
		cmd.Printf("  deleted:   %d\n", run.Deleted)
	}
	if run.Skipped > 0 {
		cmd.Printf("  skipped:   %d\n", run.Skipped)
	}
	if run.Failed > 0 {
		cmd.Printf("  failed:    %d\n", run.Failed)
	}
}
