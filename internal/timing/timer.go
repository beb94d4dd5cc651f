package timing

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/abhisek/trainsched/internal/apperr"
)

// ErrInvalidTransition is returned when a timer event is not legal in the
// session's current state.
var ErrInvalidTransition = fmt.Errorf("invalid timer transition: %w", apperr.ErrInvalidInput)

// State is a timer session's lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateExpired   State = "expired"
	StateCompleted State = "completed"
)

// Event drives a timer session between states.
type Event string

const (
	EventStart    Event = "start"
	EventPause    Event = "pause"
	EventResume   Event = "resume"
	EventComplete Event = "complete"
	EventExpire   Event = "expire"
)

// timerTransitions lists every legal move. Completed and expired are terminal.
var timerTransitions = map[State]map[Event]State{
	StateIdle:    {EventStart: StateRunning},
	StateRunning: {EventPause: StatePaused, EventComplete: StateCompleted, EventExpire: StateExpired},
	StatePaused:  {EventResume: StateRunning},
}

// Terminal reports whether no further events are accepted.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateExpired
}

// WarningType identifies a pacing warning.
type WarningType string

const (
	WarningApproaching WarningType = "approaching-limit"
	WarningOverTime    WarningType = "over-time"
)

// Warning is emitted the first time a session crosses a pacing threshold.
type Warning struct {
	Type           WarningType `json:"type"`
	ElapsedSeconds float64     `json:"elapsed_seconds"`
	Ratio          float64     `json:"ratio"`
}

// Session is a single question timer.
type Session struct {
	ID          string        `json:"id"`
	QuestionID  string        `json:"question_id"`
	Budget      Budget        `json:"budget"`
	State       State         `json:"state"`
	StartedAt   time.Time     `json:"started_at"`
	PausedAt    *time.Time    `json:"paused_at,omitempty"`
	PausedTotal time.Duration `json:"paused_total"`
	EndedAt     *time.Time    `json:"ended_at,omitempty"`
	Warned      []WarningType `json:"warned,omitempty"`
}

// NewSession returns an idle session.
func NewSession(id, questionID string, budget Budget) *Session {
	return &Session{ID: id, QuestionID: questionID, Budget: budget, State: StateIdle}
}

func (s *Session) fire(ev Event) error {
	next, ok := timerTransitions[s.State][ev]
	if !ok {
		return fmt.Errorf("%s from %s: %w", ev, s.State, ErrInvalidTransition)
	}
	s.State = next
	return nil
}

// Elapsed returns active time: now - start - paused, never negative.
// Paused sessions are frozen at the pause instant; finished sessions at
// their end. An expired session reports exactly its budget.
func (s *Session) Elapsed(now time.Time) time.Duration {
	var end time.Time
	switch s.State {
	case StateIdle:
		return 0
	case StateExpired:
		return time.Duration(s.Budget.AdjustedSeconds) * time.Second
	case StatePaused:
		end = deref(s.PausedAt, now)
	case StateCompleted:
		end = deref(s.EndedAt, now)
	default:
		end = now
	}
	d := end.Sub(s.StartedAt) - s.PausedTotal
	if d < 0 {
		return 0
	}
	return d
}

// Start begins timing.
func (s *Session) Start(now time.Time) error {
	if err := s.fire(EventStart); err != nil {
		return err
	}
	s.StartedAt = now
	return nil
}

// Pause freezes elapsed time.
func (s *Session) Pause(now time.Time) error {
	if err := s.fire(EventPause); err != nil {
		return err
	}
	at := now
	s.PausedAt = &at
	return nil
}

// Resume continues timing, accumulating the paused interval.
func (s *Session) Resume(now time.Time) error {
	if err := s.fire(EventResume); err != nil {
		return err
	}
	if gap := now.Sub(deref(s.PausedAt, now)); gap > 0 {
		s.PausedTotal += gap
	}
	s.PausedAt = nil
	return nil
}

// Complete ends the session on submission.
func (s *Session) Complete(now time.Time) (Result, error) {
	if err := s.fire(EventComplete); err != nil {
		return Result{}, err
	}
	at := now
	s.EndedAt = &at
	return s.result(now)
}

// Expire ends the session because the budget ran out.
func (s *Session) Expire(now time.Time) (Result, error) {
	if err := s.fire(EventExpire); err != nil {
		return Result{}, err
	}
	at := now
	s.EndedAt = &at
	return s.result(now)
}

// Result returns the record of a finished session.
func (s *Session) Result() (Result, error) {
	if !s.State.Terminal() {
		return Result{}, fmt.Errorf("result of %s session: %w", s.State, ErrInvalidTransition)
	}
	return s.result(deref(s.EndedAt, s.StartedAt))
}

func deref(t *time.Time, fallback time.Time) time.Time {
	if t == nil {
		return fallback
	}
	return *t
}

func (s *Session) result(now time.Time) (Result, error) {
	budget := float64(s.Budget.AdjustedSeconds)
	var r Result
	if s.State == StateExpired {
		r = expiredResult(budget)
	} else {
		var err error
		r, err = NewResult(s.Elapsed(now).Seconds(), budget)
		if err != nil {
			return Result{}, err
		}
	}
	r.SessionID = s.ID
	r.QuestionID = s.QuestionID
	r.QuestionType = s.Budget.QuestionType
	r.Mode = s.Budget.Mode
	return r, nil
}

// CheckResult reports what a Check observed.
type CheckResult struct {
	State          State     `json:"state"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	Ratio          float64   `json:"ratio"`
	Warnings       []Warning `json:"warnings,omitempty"`
	Result         *Result   `json:"result,omitempty"`
}

// Check evaluates pacing at now. Each warning type is emitted at most once
// per session. An enforced budget expires the session at 100%.
func (s *Session) Check(now time.Time) (CheckResult, error) {
	if s.Budget.AdjustedSeconds <= 0 {
		return CheckResult{}, apperr.Invalid("budget", "session %s has no budget", s.ID)
	}
	elapsed := s.Elapsed(now).Seconds()
	ratio := elapsed / float64(s.Budget.AdjustedSeconds)
	cr := CheckResult{State: s.State, ElapsedSeconds: elapsed, Ratio: ratio}
	if s.State != StateRunning {
		return cr, nil
	}

	if ratio >= s.Budget.WarningThreshold {
		cr.Warnings = s.warnOnce(cr.Warnings, WarningApproaching, elapsed, ratio)
	}
	if ratio >= 1.0 {
		cr.Warnings = s.warnOnce(cr.Warnings, WarningOverTime, elapsed, ratio)
		if s.Budget.StrictEnforcement {
			r, err := s.Expire(now)
			if err != nil {
				return cr, err
			}
			cr.State = s.State
			cr.Result = &r
		}
	}
	return cr, nil
}

func (s *Session) warnOnce(out []Warning, wt WarningType, elapsed, ratio float64) []Warning {
	if slices.Contains(s.Warned, wt) {
		return out
	}
	s.Warned = append(s.Warned, wt)
	return append(out, Warning{Type: wt, ElapsedSeconds: elapsed, Ratio: ratio})
}

// IsInvalidTransition reports whether err came from an illegal timer event.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}
