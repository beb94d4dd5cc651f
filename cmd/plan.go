package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/trainsched/internal/ui/theme"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build today's practice plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("why")

		svc, closeFn, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		plan, items, err := svc.BuildPlan(cmd.Context(), now())
		if err != nil {
			return fmt.Errorf("build plan: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, theme.Title.Render("Plan for "+plan.Date.Local().Format("Mon 02 Jan")))
		fmt.Fprintln(out, theme.Field("Target", fmt.Sprintf("%d min", plan.TargetMinutes)))
		fmt.Fprintln(out, theme.Field("Done today", fmt.Sprintf("%d min", plan.CompletedMinutes)))
		fmt.Fprintln(out, theme.Field("Planned", fmt.Sprintf("%d min", plan.PlannedMinutes)))
		fmt.Fprintln(out)

		if len(plan.Blocks) == 0 {
			fmt.Fprintln(out, theme.Hint.Render("Nothing left to plan today."))
		}
		for i, b := range plan.Blocks {
			atoms := strings.Join(b.AtomIDs, ", ")
			if atoms == "" {
				atoms = theme.Hint.Render("(free practice)")
			}
			fmt.Fprintf(out, "%d. %s %s  %s\n", i+1,
				theme.TableHeader.Render(fmt.Sprintf("%-9s", b.Type)),
				theme.Value.Render(fmt.Sprintf("%3d min", b.Minutes)),
				atoms)
		}

		if len(plan.Skipped) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, theme.Warn.Render("Resting"))
			for _, s := range plan.Skipped {
				fmt.Fprintf(out, "  %-24s %s\n", s.AtomID, s.Reason)
			}
		}

		if verbose && len(items) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, theme.TableHeader.Render(fmt.Sprintf("%-24s  %6s  %s", "Atom", "Score", "Factors")))
			fmt.Fprintln(out, strings.Repeat("─", 80))
			for _, it := range items {
				reasons := make([]string, 0, len(it.Factors))
				for _, f := range it.Factors {
					reasons = append(reasons, f.Reason)
				}
				fmt.Fprintf(out, "%-24s  %6.1f  %s\n", it.AtomID, it.Score, strings.Join(reasons, "; "))
			}
		}
		return nil
	},
}

func init() {
	planCmd.Flags().Bool("why", false, "Also list every atom's priority score and factors")
}
