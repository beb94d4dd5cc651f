package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/trainsched/internal/export"
	"github.com/abhisek/trainsched/internal/trainer"
)

var exportCmd = &cobra.Command{
	Use:   "export <file.xlsx>",
	Short: "Write ratings, mastery and reviews to a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(svc *trainer.Service) error {
			ratings, rows, items, err := svc.ExportData(cmd.Context())
			if err != nil {
				return err
			}
			if err := export.WriteFile(args[0], export.Data{
				Ratings: ratings,
				Mastery: rows,
				Reviews: items,
				Now:     now(),
			}); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d ratings, %d atoms and %d reviews to %s\n",
				len(ratings), len(rows), len(items), args[0])
			return nil
		})
	},
}
