package trainer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/abhisek/trainsched/internal/antigrind"
	"github.com/abhisek/trainsched/internal/apperr"
	"github.com/abhisek/trainsched/internal/mastery"
	"github.com/abhisek/trainsched/internal/outcome"
	"github.com/abhisek/trainsched/internal/rating"
	"github.com/abhisek/trainsched/internal/spacedrep"
	"github.com/abhisek/trainsched/internal/store"
	"github.com/abhisek/trainsched/internal/timing"
)

// AttemptInput describes one answered question.
type AttemptInput struct {
	AtomID  string
	Section string
	// QuestionID defaults to the timer's question, then to AtomID.
	QuestionID   string
	QuestionType timing.QuestionType
	Correct      bool
	Guessed      bool
	// TimerID, when set, completes that timer and takes the elapsed time
	// from it; ElapsedSeconds is ignored.
	TimerID        string
	ElapsedSeconds float64
	Difficulty     spacedrep.Difficulty
	At             time.Time
}

// AttemptReport is everything RecordAttempt changed.
type AttemptReport struct {
	Sequence int64
	Timing   timing.Result
	Outcome  outcome.Result
	XP       antigrind.XPAward
	// StreakBonus is the learner win-streak multiplier folded into XP.XP.
	StreakBonus float64
	Guard       antigrind.Decision
	Rating      rating.Change
	Transition  *mastery.Transition
	Review      *spacedrep.Item
}

// RecordAttempt folds one attempt into ratings, mastery and the review
// queue, scores it, and appends it to the event log. All writes, including
// dropping the timer, commit together; on error the timer stays live.
func (s *Service) RecordAttempt(ctx context.Context, in AttemptInput) (*AttemptReport, error) {
	if in.AtomID == "" {
		return nil, apperr.Invalid("atomID", "must not be empty")
	}
	if in.Difficulty == "" {
		in.Difficulty = spacedrep.DifficultyMedium
	}
	if _, err := spacedrep.QualityFromOutcome(in.Correct, in.Difficulty); err != nil {
		return nil, err
	}

	rep := &AttemptReport{}
	var err error
	if in.TimerID != "" {
		rep.Timing, err = s.finishTimer(in.TimerID, in.At)
		if err != nil {
			return nil, err
		}
		if in.QuestionID == "" {
			in.QuestionID = rep.Timing.QuestionID
		}
		if in.QuestionType == "" {
			in.QuestionType = rep.Timing.QuestionType
		}
	} else {
		budget, err := timing.CalculateBudget(in.QuestionType, s.cfg.LearnerLevel, 0)
		if err != nil {
			return nil, err
		}
		rep.Timing, err = timing.NewResult(in.ElapsedSeconds, float64(budget.AdjustedSeconds))
		if err != nil {
			return nil, err
		}
		rep.Timing.QuestionType = budget.QuestionType
		rep.Timing.Mode = budget.Mode
	}
	if in.QuestionID == "" {
		in.QuestionID = in.AtomID
	}
	rep.Timing.QuestionID = in.QuestionID

	// Ratings.
	book, err := s.loadBook(ctx)
	if err != nil {
		return nil, err
	}
	atomRating := book.Ensure(rating.Key{Scope: rating.ScopeAtom, ID: in.AtomID}, in.At)
	question := book.Ensure(rating.Key{Scope: rating.ScopeQuestion, ID: in.QuestionID}, in.At)
	learnerBefore, questionBefore := atomRating.Value, question.Value

	rep.Outcome, err = outcome.Evaluate(outcome.Input{
		WasCorrect:     in.Correct,
		WasGuessed:     in.Guessed,
		TimeCategory:   rep.Timing.Category,
		LearnerRating:  learnerBefore,
		QuestionRating: questionBefore,
	})
	if err != nil {
		return nil, err
	}

	rep.Rating, _, err = rating.Match(atomRating, question, in.Correct, in.At)
	if err != nil {
		return nil, err
	}
	learner := book.Ensure(LearnerKey, in.At)
	touched := []*rating.Rating{atomRating, question}
	outer := []*rating.Rating{learner}
	if in.Section != "" {
		outer = append(outer, book.Ensure(rating.Key{Scope: rating.ScopeSection, ID: in.Section}, in.At))
	}
	for _, r := range outer {
		if _, err := rating.ApplyOutcome(r, rating.Outcome{OpponentValue: questionBefore, WasCorrect: in.Correct, At: in.At}); err != nil {
			return nil, err
		}
		touched = append(touched, r)
	}

	// Anti-grind: judged against today's attempts before this one. Wrong
	// answers earn a share of the base award.
	counts, _, err := s.today(ctx, in.At)
	if err != nil {
		return nil, err
	}
	rep.Guard = s.guard.CanPracticeAtom(in.AtomID, counts, nil, in.At)
	base := rep.Outcome.XP
	if !in.Correct {
		base = outcome.BaseXP
	}
	rep.XP = s.guard.CalculateXP(base, in.AtomID, counts, in.Correct)

	// Streak bonus: the learner's current win streak, discounted by how
	// varied today's attempts are, this one included.
	counts.Record(in.AtomID, in.At)
	rep.StreakBonus = 1.0
	if in.Correct && learner.StreakType == rating.StreakWin {
		rep.StreakBonus = antigrind.StreakBonus(learner.CurrentStreak, counts.Unique(), counts.Total())
	}
	rep.XP.XP = int(math.Round(float64(rep.XP.Base) * rep.XP.Multiplier * rep.StreakBonus))

	// Mastery.
	tracker, err := s.loadTracker(ctx)
	if err != nil {
		return nil, err
	}
	rep.Transition, err = tracker.RecordAttempt(in.AtomID, in.Correct, rep.Timing.ElapsedSeconds, in.At)
	if err != nil {
		return nil, err
	}
	row := tracker.Get(in.AtomID)
	if row.Section == "" {
		row.Section = in.Section
	}

	// Review queue, keyed by atom.
	sched, err := s.loadScheduler(ctx)
	if err != nil {
		return nil, err
	}
	tracked, err := sched.RecordOutcome(in.AtomID, in.Correct, in.Difficulty, in.At)
	if err != nil {
		return nil, err
	}
	if tracked {
		item, err := sched.Get(in.AtomID)
		if err != nil {
			return nil, err
		}
		rep.Review = &item
	}

	err = s.store.InTx(ctx, func(tx *store.Tx) error {
		var err error
		rep.Sequence, err = tx.Events().AppendAttempt(ctx, store.AttemptEventData{
			AtomID:        in.AtomID,
			QuestionID:    in.QuestionID,
			Section:       in.Section,
			Correct:       in.Correct,
			Guessed:       in.Guessed,
			QuestionType:  string(rep.Timing.QuestionType),
			TimeSeconds:   rep.Timing.ElapsedSeconds,
			BudgetSeconds: rep.Timing.BudgetSeconds,
			TimeCategory:  string(rep.Timing.Category),
			Outcome:       string(rep.Outcome.Category),
			XP:            rep.XP.XP,
			SessionID:     rep.Timing.SessionID,
			At:            in.At,
		})
		if err != nil {
			return err
		}
		for _, r := range touched {
			if err := tx.Ratings().Upsert(ctx, r); err != nil {
				return err
			}
		}
		if err := tx.Mastery().Upsert(ctx, *row); err != nil {
			return err
		}
		if rep.Review != nil {
			if err := tx.Reviews().Upsert(ctx, *rep.Review); err != nil {
				return err
			}
		}
		if in.TimerID != "" {
			return tx.Timers().Delete(ctx, in.TimerID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if in.TimerID != "" {
		s.timers.Remove(in.TimerID)
	}

	attrs := []any{
		"atom", in.AtomID,
		"correct", in.Correct,
		"outcome", rep.Outcome.Category,
		"xp", rep.XP.XP,
		"streak_bonus", rep.StreakBonus,
		"rating", rep.Rating.NewValue,
	}
	if rep.Transition != nil {
		attrs = append(attrs, "level", rep.Transition.To)
	}
	s.log.InfoContext(ctx, "attempt recorded", attrs...)
	if !rep.Guard.Allowed {
		s.log.WarnContext(ctx, "atom over practice limit", "atom", in.AtomID, "reason", rep.Guard.Reason)
	}
	return rep, nil
}

// AbandonInput describes a question left unanswered.
type AbandonInput struct {
	AtomID  string
	Section string
	// TimerID, when set, ends that timer and takes elapsed time and budget
	// from it.
	TimerID        string
	QuestionID     string
	QuestionType   timing.QuestionType
	ElapsedSeconds float64
	// Reason is inferred from the share of budget used when empty.
	Reason timing.AbandonReason
	At     time.Time
}

// AbandonQuestion records a question the learner walked away from. It does
// not touch ratings, mastery or reviews.
func (s *Service) AbandonQuestion(ctx context.Context, in AbandonInput) (timing.AbandonmentEvent, error) {
	if in.AtomID == "" {
		return timing.AbandonmentEvent{}, apperr.Invalid("atomID", "must not be empty")
	}

	var elapsed, budget float64
	sessionID := ""
	if in.TimerID != "" {
		sess, err := s.timers.Get(in.TimerID)
		if err != nil {
			return timing.AbandonmentEvent{}, err
		}
		elapsed = sess.Elapsed(in.At).Seconds()
		budget = float64(sess.Budget.AdjustedSeconds)
		sessionID = sess.ID
		if in.QuestionID == "" {
			in.QuestionID = sess.QuestionID
		}
		in.QuestionType = sess.Budget.QuestionType
	} else {
		b, err := timing.CalculateBudget(in.QuestionType, s.cfg.LearnerLevel, 0)
		if err != nil {
			return timing.AbandonmentEvent{}, err
		}
		elapsed = in.ElapsedSeconds
		budget = float64(b.AdjustedSeconds)
	}
	if in.QuestionID == "" {
		in.QuestionID = in.AtomID
	}

	ev, err := timing.RecordAbandonment(in.QuestionID, in.QuestionType, elapsed, budget, in.Reason, in.At)
	if err != nil {
		return timing.AbandonmentEvent{}, err
	}
	err = s.store.InTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.Events().AppendAttempt(ctx, store.AttemptEventData{
			AtomID:        in.AtomID,
			QuestionID:    in.QuestionID,
			Section:       in.Section,
			QuestionType:  string(in.QuestionType),
			TimeSeconds:   elapsed,
			BudgetSeconds: budget,
			AbandonReason: string(ev.Reason),
			Outcome:       "abandoned",
			SessionID:     sessionID,
			At:            in.At,
		}); err != nil {
			return err
		}
		if sessionID != "" {
			return tx.Timers().Delete(ctx, sessionID)
		}
		return nil
	})
	if err != nil {
		return timing.AbandonmentEvent{}, err
	}
	if sessionID != "" {
		s.timers.Remove(sessionID)
	}
	s.log.InfoContext(ctx, "question abandoned",
		"atom", in.AtomID, "reason", ev.Reason, "inferred", ev.Inferred, "percent_used", fmt.Sprintf("%.0f", ev.PercentBudgetUsed))
	return ev, nil
}
