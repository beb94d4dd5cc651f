package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/trainsched/internal/trainer"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save or restore a snapshot of learner state",
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save a snapshot and prune old ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(svc *trainer.Service) error {
			snap, err := svc.Snapshot(cmd.Context(), now())
			if err != nil {
				return fmt.Errorf("snapshot: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved snapshot %d at sequence %d (rules %s)\n",
				snap.ID, snap.Sequence, snap.Data.RulesVersion)
			return nil
		})
	},
}

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the latest snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(svc *trainer.Service) error {
			snap, err := svc.RestoreSnapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored snapshot %d from %s\n",
				snap.ID, snap.Timestamp.Local().Format("2006-01-02 15:04:05"))
			return nil
		})
	},
}

func init() {
	snapshotCmd.AddCommand(snapshotSaveCmd)
	snapshotCmd.AddCommand(snapshotRestoreCmd)
}
