package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/trainsched/internal/spacedrep"
	"github.com/abhisek/trainsched/internal/timing"
	"github.com/abhisek/trainsched/internal/trainer"
	"github.com/abhisek/trainsched/internal/ui/theme"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record an answered question",
	Example: "  trainsched record --atom algebra.linear --section quant --correct --seconds 95\n" +
		"  trainsched record --atom algebra.linear --timer 3f1c... --wrong",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		in := trainer.AttemptInput{At: now()}
		in.AtomID, _ = f.GetString("atom")
		in.Section, _ = f.GetString("section")
		in.QuestionID, _ = f.GetString("question")
		qt, _ := f.GetString("type")
		in.QuestionType = timing.QuestionType(qt)
		in.TimerID, _ = f.GetString("timer")
		in.ElapsedSeconds, _ = f.GetFloat64("seconds")
		in.Guessed, _ = f.GetBool("guessed")
		d, _ := f.GetString("difficulty")
		in.Difficulty = spacedrep.Difficulty(d)

		correct, _ := f.GetBool("correct")
		wrong, _ := f.GetBool("wrong")
		switch {
		case correct == wrong:
			return fmt.Errorf("pass exactly one of --correct or --wrong")
		case in.TimerID == "" && !f.Changed("seconds"):
			return fmt.Errorf("pass --seconds or --timer")
		}
		in.Correct = correct

		svc, closeFn, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		rep, err := svc.RecordAttempt(cmd.Context(), in)
		if err != nil {
			return fmt.Errorf("record attempt: %w", err)
		}

		out := cmd.OutOrStdout()
		style := theme.Good
		if !in.Correct {
			style = theme.Bad
		}
		fmt.Fprintln(out, style.Render(rep.Outcome.Feedback.Headline))
		if rep.Outcome.Feedback.RequiresReflection {
			fmt.Fprintln(out, theme.Hint.Render(rep.Outcome.Feedback.ReflectionPrompt))
		}
		fmt.Fprintln(out, theme.Field("Time", fmt.Sprintf("%.0fs of %.0fs (%s)",
			rep.Timing.ElapsedSeconds, rep.Timing.BudgetSeconds, rep.Timing.Category)))
		fmt.Fprintln(out, theme.Field("Rating", fmt.Sprintf("%d → %d (%+d)",
			rep.Rating.OldValue, rep.Rating.NewValue, rep.Rating.Delta)))

		xp := fmt.Sprintf("%d", rep.XP.XP)
		if rep.XP.Diminished {
			xp += fmt.Sprintf(" (x%.1f, diminishing)", rep.XP.Multiplier)
		}
		fmt.Fprintln(out, theme.Field("XP", xp))
		if rep.Transition != nil {
			fmt.Fprintln(out, theme.Field("Mastery", fmt.Sprintf("%s → %s", rep.Transition.From, rep.Transition.To)))
		}
		if rep.Review != nil {
			fmt.Fprintln(out, theme.Field("Next review", rep.Review.DueDate.Local().Format("2006-01-02")))
		}
		if !rep.Guard.Allowed {
			fmt.Fprintln(out, theme.Warn.Render(rep.Guard.Message))
		}
		return nil
	},
}

func init() {
	f := recordCmd.Flags()
	f.String("atom", "", "Skill atom the question practised (required)")
	f.String("section", "", "Section the atom belongs to (e.g. quant, verbal)")
	f.String("question", "", "Question id (defaults to the timer's question, then the atom)")
	f.String("type", string(timing.ProblemSolving), "Question type")
	f.String("timer", "", "Timer id to complete; its elapsed time is used")
	f.Float64("seconds", 0, "Seconds spent when no timer was used")
	f.Bool("correct", false, "The answer was correct")
	f.Bool("wrong", false, "The answer was wrong")
	f.Bool("guessed", false, "The answer was a guess")
	f.String("difficulty", string(spacedrep.DifficultyMedium), "Perceived difficulty: easy, medium or hard")
	_ = recordCmd.MarkFlagRequired("atom")
}
