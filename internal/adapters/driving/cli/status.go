package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if syncRunner == nil {
		return errors.New("sync service not configured")
	}

	status, err := syncRunner.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	if status.Running {
		cmd.Println("Sync: running")
	} else {
		cmd.Println("Sync: idle")
	}
	if status.LastSync != "" {
		cmd.Printf("Last sync: %s\n", status.LastSync)
	} else {
		cmd.Println("Last sync: never")
	}
	if status.Cursor != "" {
		cmd.Println("Cursor: present")
	} else {
		cmd.Println("Cursor: none (next sync will be full)")
	}
	if status.LastRun != nil {
		printRun(cmd, status.LastRun)
	}
	cmd.Printf("Runs recorded: %d\n", status.RunsRecorded)
	return nil
}
