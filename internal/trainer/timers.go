package trainer

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/trainsched/internal/timing"
)

// StartTimer starts a question timer sized for the learner's level.
func (s *Service) StartTimer(ctx context.Context, questionID string, qt timing.QuestionType, now time.Time) (timing.Session, error) {
	budget, err := timing.CalculateBudget(qt, s.cfg.LearnerLevel, 0)
	if err != nil {
		return timing.Session{}, err
	}
	sess, err := s.timers.Start(questionID, budget, now)
	if err != nil {
		return timing.Session{}, err
	}
	if err := s.store.Timers().Save(ctx, sess); err != nil {
		s.timers.Remove(sess.ID)
		return timing.Session{}, err
	}
	s.log.DebugContext(ctx, "timer started", "id", sess.ID, "question", questionID, "budget_seconds", budget.AdjustedSeconds, "mode", budget.Mode)
	return sess, nil
}

// PauseTimer pauses a running timer.
func (s *Service) PauseTimer(ctx context.Context, id string, now time.Time) (timing.Session, error) {
	sess, err := s.timers.Pause(id, now)
	if err != nil {
		return timing.Session{}, err
	}
	return sess, s.store.Timers().Save(ctx, sess)
}

// ResumeTimer resumes a paused timer.
func (s *Service) ResumeTimer(ctx context.Context, id string, now time.Time) (timing.Session, error) {
	sess, err := s.timers.Resume(id, now)
	if err != nil {
		return timing.Session{}, err
	}
	return sess, s.store.Timers().Save(ctx, sess)
}

// CheckTimer reports pacing warnings. A timer with an enforced budget that
// has run out is expired and its result returned in the check.
func (s *Service) CheckTimer(ctx context.Context, id string, now time.Time) (timing.CheckResult, error) {
	cr, err := s.timers.Check(id, now)
	if err != nil {
		return timing.CheckResult{}, err
	}
	sess, err := s.timers.Get(id)
	if err != nil {
		return timing.CheckResult{}, err
	}
	if err := s.store.Timers().Save(ctx, sess); err != nil {
		return timing.CheckResult{}, err
	}
	for _, w := range cr.Warnings {
		s.log.InfoContext(ctx, "pacing warning", "id", id, "type", w.Type, "ratio", fmt.Sprintf("%.2f", w.Ratio))
	}
	return cr, nil
}

// CompleteTimer ends a timer and returns its result. Enforced budgets that
// already ran out yield the expired result. The timer is forgotten
// afterwards. Paused timers must be resumed first.
//
// RecordAttempt finishes timers itself and only drops them once the
// attempt is stored.
func (s *Service) CompleteTimer(ctx context.Context, id string, now time.Time) (timing.Result, error) {
	res, err := s.finishTimer(id, now)
	if err != nil {
		return timing.Result{}, err
	}
	if err := s.dropTimer(ctx, id); err != nil {
		return timing.Result{}, err
	}
	return res, nil
}

func (s *Service) finishTimer(id string, now time.Time) (timing.Result, error) {
	sess, err := s.timers.Get(id)
	if err != nil {
		return timing.Result{}, err
	}
	if sess.State == timing.StateRunning {
		cr, err := s.timers.Check(id, now)
		if err != nil {
			return timing.Result{}, err
		}
		if cr.Result != nil {
			return *cr.Result, nil
		}
	}
	if sess.State.Terminal() {
		return sess.Result()
	}
	return s.timers.Complete(id, now)
}

func (s *Service) dropTimer(ctx context.Context, id string) error {
	if err := s.store.Timers().Delete(ctx, id); err != nil {
		return err
	}
	s.timers.Remove(id)
	return nil
}

// Timers returns every live timer, oldest first.
func (s *Service) Timers() []timing.Session {
	return s.timers.Sessions()
}
