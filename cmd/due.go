package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/trainsched/internal/trainer"
	"github.com/abhisek/trainsched/internal/ui/theme"
)

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "List review items that are due",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(svc *trainer.Service) error {
			at := now()
			items, err := svc.DueReviews(cmd.Context(), at)
			if err != nil {
				return fmt.Errorf("due reviews: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "Nothing due for review.")
				return nil
			}

			fmt.Fprintln(out, theme.TableHeader.Render(fmt.Sprintf("%-28s  %-10s  %8s  %5s  %6s  %s",
				"Atom", "Due", "Overdue", "Ease", "Lapses", "Status")))
			fmt.Fprintln(out, strings.Repeat("─", 80))
			for _, it := range items {
				fmt.Fprintf(out, "%-28s  %-10s  %7.1fd  %5.2f  %6d  %s\n",
					it.ItemID,
					it.DueDate.Local().Format("2006-01-02"),
					it.OverdueDays(at),
					it.EaseFactor,
					it.Lapses,
					it.Status(at))
			}
			fmt.Fprintf(out, "\n%d due\n", len(items))
			return nil
		})
	},
}
