package cmd

import (
	"fmt"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/trainsched/internal/mastery"
	"github.com/abhisek/trainsched/internal/trainer"
	"github.com/abhisek/trainsched/internal/ui/components"
	"github.com/abhisek/trainsched/internal/ui/theme"
)

var gatesCmd = &cobra.Command{
	Use:   "gates",
	Short: "Show progress towards each configured gate",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(svc *trainer.Service) error {
			progress, err := svc.GateProgress(cmd.Context())
			if err != nil {
				return fmt.Errorf("gate progress: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(progress) == 0 {
				fmt.Fprintln(out, "No gates configured. Set TRAINSCHED_GATES_FILE or pass --gates.")
				return nil
			}
			for i, p := range progress {
				name := p.RequirementID
				if name == "" {
					name = fmt.Sprintf("gate-%d", i+1)
				}
				printGate(cmd, name, p, 0)
			}
			return nil
		})
	},
}

func printGate(cmd *cobra.Command, name string, p mastery.Progress, depth int) {
	indent := fmt.Sprintf("%*s", depth*2, "")
	bar := components.NewProgressBar(fmt.Sprintf("%s%-20s", indent, name), p.PercentComplete, true, 60)
	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", bar.View(), statusStyle(p.Status).Render(string(p.Status)))
	for i, c := range p.Children {
		child := c.RequirementID
		if child == "" {
			child = fmt.Sprintf("%s.%d", string(c.Type), i+1)
		}
		printGate(cmd, child, c, depth+1)
	}
}

func statusStyle(s mastery.GateStatus) lipgloss.Style {
	switch s {
	case mastery.GatePassed:
		return theme.Good
	case mastery.GateFailed:
		return theme.Bad
	case mastery.GateInProgress:
		return theme.Warn
	default:
		return theme.Hint
	}
}
