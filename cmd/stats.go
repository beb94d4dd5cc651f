package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/trainsched/internal/mastery"
	"github.com/abhisek/trainsched/internal/trainer"
	"github.com/abhisek/trainsched/internal/ui/theme"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(svc *trainer.Service) error {
			st, err := svc.Stats(cmd.Context(), now())
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, theme.Title.Render("Learner"))
			if st.Learner == nil {
				fmt.Fprintln(out, theme.Hint.Render("No attempts recorded yet."))
				return nil
			}
			fmt.Fprintln(out, theme.Field("Rating", fmt.Sprintf("%d ±%d (peak %d)", st.Learner.Value, st.Learner.Deviation, st.Learner.PeakValue)))
			if st.Band != nil {
				fmt.Fprintln(out, theme.Field("Target band", fmt.Sprintf("%d–%d", st.Band.Min, st.Band.Max)))
			}
			if st.Learner.StreakType != "" {
				fmt.Fprintln(out, theme.Field("Streak", fmt.Sprintf("%d %s", st.Learner.CurrentStreak, st.Learner.StreakType)))
			}
			fmt.Fprintln(out, theme.Field("Recent wins", fmt.Sprintf("%.0f%%", st.RecentWinRate*100)))
			fmt.Fprintln(out, theme.Field("Attempts", fmt.Sprintf("%d (%.0f%% correct)", st.Attempts, st.Accuracy*100)))
			fmt.Fprintln(out, theme.Field("XP today", fmt.Sprintf("%d", st.XPToday)))
			fmt.Fprintln(out, theme.Field("Variety", fmt.Sprintf("%d/100", st.Variety)))
			fmt.Fprintln(out, theme.Field("Due reviews", fmt.Sprintf("%d", st.DueReviews)))

			fmt.Fprintln(out)
			fmt.Fprintln(out, theme.Title.Render("Mastery"))
			for _, lvl := range []mastery.Level{
				mastery.LevelLearning, mastery.LevelPracticing, mastery.LevelMastered, mastery.LevelReviewing,
			} {
				fmt.Fprintln(out, theme.Field(string(lvl), fmt.Sprintf("%d", st.Levels[lvl])))
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, theme.Title.Render("Pacing"))
			if !st.Drift.SufficientData {
				fmt.Fprintln(out, theme.Hint.Render(fmt.Sprintf("Not enough timed attempts yet (%d).", st.Drift.SampleCount)))
			} else {
				fmt.Fprintln(out, theme.Field("Drift", fmt.Sprintf("%s, %s (%.2f)", st.Drift.Direction, st.Drift.Severity, st.Drift.Magnitude)))
			}
			for _, p := range st.Patterns {
				fmt.Fprintln(out, theme.Warn.Render(fmt.Sprintf("%s ×%d", p.Type, p.Frequency)))
			}
			return nil
		})
	},
}
