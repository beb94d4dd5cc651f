package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/trainsched/internal/timing"
	"github.com/abhisek/trainsched/internal/trainer"
	"github.com/abhisek/trainsched/internal/ui/theme"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Time individual questions",
}

var timerStartCmd = &cobra.Command{
	Use:   "start <question-id>",
	Short: "Start a question timer sized for the learner's level",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		qt, _ := cmd.Flags().GetString("type")
		return withService(cmd, func(svc *trainer.Service) error {
			sess, err := svc.StartTimer(cmd.Context(), args[0], timing.QuestionType(qt), now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, theme.Field("Timer", sess.ID))
			enforced := ""
			if sess.Budget.StrictEnforcement {
				enforced = ", enforced"
			}
			fmt.Fprintln(out, theme.Field("Budget", fmt.Sprintf("%ds (%s%s)", sess.Budget.AdjustedSeconds, sess.Budget.Mode, enforced)))
			return nil
		})
	},
}

var timerPauseCmd = &cobra.Command{
	Use:   "pause <timer-id>",
	Short: "Pause a running timer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(svc *trainer.Service) error {
			sess, err := svc.PauseTimer(cmd.Context(), args[0], now())
			if err != nil {
				return err
			}
			printSession(cmd, sess)
			return nil
		})
	},
}

var timerResumeCmd = &cobra.Command{
	Use:   "resume <timer-id>",
	Short: "Resume a paused timer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(svc *trainer.Service) error {
			sess, err := svc.ResumeTimer(cmd.Context(), args[0], now())
			if err != nil {
				return err
			}
			printSession(cmd, sess)
			return nil
		})
	},
}

var timerCheckCmd = &cobra.Command{
	Use:   "check <timer-id>",
	Short: "Show elapsed time and pacing warnings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(svc *trainer.Service) error {
			cr, err := svc.CheckTimer(cmd.Context(), args[0], now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, theme.Field("State", string(cr.State)))
			fmt.Fprintln(out, theme.Field("Elapsed", fmt.Sprintf("%.0fs (%.0f%%)", cr.ElapsedSeconds, cr.Ratio*100)))
			for _, w := range cr.Warnings {
				fmt.Fprintln(out, theme.Warn.Render(string(w.Type)))
			}
			if cr.Result != nil {
				fmt.Fprintln(out, theme.Bad.Render("Time is up."))
			}
			return nil
		})
	},
}

var timerCompleteCmd = &cobra.Command{
	Use:   "complete <timer-id>",
	Short: "Stop a timer without recording an attempt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(svc *trainer.Service) error {
			res, err := svc.CompleteTimer(cmd.Context(), args[0], now())
			if err != nil {
				return err
			}
			printResult(cmd, res)
			return nil
		})
	},
}

var timerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live timers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(svc *trainer.Service) error {
			timers := svc.Timers()
			out := cmd.OutOrStdout()
			if len(timers) == 0 {
				fmt.Fprintln(out, "No live timers.")
				return nil
			}
			fmt.Fprintln(out, theme.TableHeader.Render(fmt.Sprintf("%-36s  %-20s  %-8s  %8s", "ID", "Question", "State", "Elapsed")))
			fmt.Fprintln(out, strings.Repeat("─", 80))
			at := now()
			for _, s := range timers {
				fmt.Fprintf(out, "%-36s  %-20s  %-8s  %7.0fs\n", s.ID, s.QuestionID, s.State, s.Elapsed(at).Seconds())
			}
			return nil
		})
	},
}

func withService(cmd *cobra.Command, fn func(*trainer.Service) error) error {
	svc, closeFn, err := openService(cmd)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(svc)
}

func printSession(cmd *cobra.Command, s timing.Session) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, theme.Field("Timer", s.ID))
	fmt.Fprintln(out, theme.Field("State", string(s.State)))
	fmt.Fprintln(out, theme.Field("Elapsed", fmt.Sprintf("%.0fs", s.Elapsed(now()).Seconds())))
}

func printResult(cmd *cobra.Command, r timing.Result) {
	out := cmd.OutOrStdout()
	style := theme.Good
	switch {
	case r.WasExpired:
		style = theme.Bad
	case r.WasOvertime:
		style = theme.Warn
	}
	fmt.Fprintln(out, theme.Field("Elapsed", fmt.Sprintf("%.0fs of %.0fs", r.ElapsedSeconds, r.BudgetSeconds)))
	fmt.Fprintln(out, theme.Label.Render("Pace")+style.Render(fmt.Sprintf("%s (%d%%)", r.Category, r.PercentUsed)))
}

func init() {
	timerStartCmd.Flags().String("type", string(timing.ProblemSolving), "Question type")

	timerCmd.AddCommand(timerStartCmd)
	timerCmd.AddCommand(timerPauseCmd)
	timerCmd.AddCommand(timerResumeCmd)
	timerCmd.AddCommand(timerCheckCmd)
	timerCmd.AddCommand(timerCompleteCmd)
	timerCmd.AddCommand(timerListCmd)
}
