package timing

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/trainsched/internal/apperr"
)

// Registry holds live timer sessions keyed by opaque id. The map is guarded
// by an RWMutex and each session by its own mutex, so operations on one
// session never block or observe another.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*slot
	newID    func() string
}

type slot struct {
	mu sync.Mutex
	s  *Session
}

// NewRegistry returns an empty registry that issues uuid session ids.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*slot),
		newID:    uuid.NewString,
	}
}

// Start creates and starts a session for a question.
func (r *Registry) Start(questionID string, budget Budget, now time.Time) (Session, error) {
	if budget.AdjustedSeconds <= 0 {
		return Session{}, apperr.Invalid("budget", "adjusted seconds must be positive")
	}
	s := NewSession(r.newID(), questionID, budget)
	if err := s.Start(now); err != nil {
		return Session{}, err
	}

	r.mu.Lock()
	r.sessions[s.ID] = &slot{s: s}
	r.mu.Unlock()
	return s.snapshot(), nil
}

func (r *Registry) lookup(id string) (*slot, error) {
	r.mu.RLock()
	sl, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, apperr.NotFound("timer session", id)
	}
	return sl, nil
}

// with runs fn against one session under that session's lock.
func (r *Registry) with(id string, fn func(*Session) error) (Session, error) {
	sl, err := r.lookup(id)
	if err != nil {
		return Session{}, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if err := fn(sl.s); err != nil {
		return sl.s.snapshot(), err
	}
	return sl.s.snapshot(), nil
}

// Get returns a copy of a session.
func (r *Registry) Get(id string) (Session, error) {
	return r.with(id, func(*Session) error { return nil })
}

// Pause pauses a running session.
func (r *Registry) Pause(id string, now time.Time) (Session, error) {
	return r.with(id, func(s *Session) error { return s.Pause(now) })
}

// Resume resumes a paused session.
func (r *Registry) Resume(id string, now time.Time) (Session, error) {
	return r.with(id, func(s *Session) error { return s.Resume(now) })
}

// Complete ends a running session on submission.
func (r *Registry) Complete(id string, now time.Time) (Result, error) {
	var res Result
	_, err := r.with(id, func(s *Session) error {
		var err error
		res, err = s.Complete(now)
		return err
	})
	return res, err
}

// Expire ends a running session that ran out of time.
func (r *Registry) Expire(id string, now time.Time) (Result, error) {
	var res Result
	_, err := r.with(id, func(s *Session) error {
		var err error
		res, err = s.Expire(now)
		return err
	})
	return res, err
}

// Check evaluates pacing warnings for a session.
func (r *Registry) Check(id string, now time.Time) (CheckResult, error) {
	var cr CheckResult
	_, err := r.with(id, func(s *Session) error {
		var err error
		cr, err = s.Check(now)
		return err
	})
	return cr, err
}

// Remove drops a session. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Restore loads sessions persisted by a previous process, replacing any
// live session with the same id.
func (r *Registry) Restore(sessions []Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range sessions {
		s := sessions[i].snapshot()
		r.sessions[s.ID] = &slot{s: &s}
	}
}

// Sessions returns copies of all sessions ordered by start time, then id.
func (r *Registry) Sessions() []Session {
	r.mu.RLock()
	slots := make([]*slot, 0, len(r.sessions))
	for _, sl := range r.sessions {
		slots = append(slots, sl)
	}
	r.mu.RUnlock()

	out := make([]Session, 0, len(slots))
	for _, sl := range slots {
		sl.mu.Lock()
		out = append(out, sl.s.snapshot())
		sl.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// snapshot deep-copies a session so callers never share its pointers.
func (s *Session) snapshot() Session {
	c := *s
	if s.PausedAt != nil {
		t := *s.PausedAt
		c.PausedAt = &t
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	c.Warned = append([]WarningType(nil), s.Warned...)
	return c
}
