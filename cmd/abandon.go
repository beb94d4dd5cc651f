package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/trainsched/internal/timing"
	"github.com/abhisek/trainsched/internal/trainer"
	"github.com/abhisek/trainsched/internal/ui/theme"
)

var abandonCmd = &cobra.Command{
	Use:   "abandon",
	Short: "Record a question left unanswered",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		in := trainer.AbandonInput{At: now()}
		in.AtomID, _ = f.GetString("atom")
		in.Section, _ = f.GetString("section")
		in.TimerID, _ = f.GetString("timer")
		in.QuestionID, _ = f.GetString("question")
		qt, _ := f.GetString("type")
		in.QuestionType = timing.QuestionType(qt)
		in.ElapsedSeconds, _ = f.GetFloat64("seconds")
		reason, _ := f.GetString("reason")
		in.Reason = timing.AbandonReason(reason)

		return withService(cmd, func(svc *trainer.Service) error {
			ev, err := svc.AbandonQuestion(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("abandon: %w", err)
			}
			out := cmd.OutOrStdout()
			r := string(ev.Reason)
			if ev.Inferred {
				r += " (inferred)"
			}
			fmt.Fprintln(out, theme.Field("Reason", r))
			fmt.Fprintln(out, theme.Field("Budget used", fmt.Sprintf("%.0f%%", ev.PercentBudgetUsed)))
			return nil
		})
	},
}

func init() {
	f := abandonCmd.Flags()
	f.String("atom", "", "Skill atom the question practised (required)")
	f.String("section", "", "Section the atom belongs to")
	f.String("timer", "", "Timer id to end; elapsed time and budget come from it")
	f.String("question", "", "Question id")
	f.String("type", string(timing.ProblemSolving), "Question type when no timer was used")
	f.Float64("seconds", 0, "Seconds spent when no timer was used")
	f.String("reason", "", "skipped, time-expired, strategic or gave-up; inferred when empty")
	_ = abandonCmd.MarkFlagRequired("atom")
}
