package antigrind

import (
	"fmt"
	"time"
)

// Config holds the anti-grind limits.
type Config struct {
	MaxSameAtomPerSession       int `validate:"min=1"`
	CooldownMinutes             int `validate:"min=0"`
	DiminishingReturnsThreshold int `validate:"min=0"`
}

// DefaultConfig returns the standard limits.
func DefaultConfig() Config {
	return Config{
		MaxSameAtomPerSession:       5,
		CooldownMinutes:             30,
		DiminishingReturnsThreshold: 3,
	}
}

// DenyReason explains why practice on an atom was refused.
type DenyReason string

const (
	DenySessionCap DenyReason = "session-cap"
	DenyCooldown   DenyReason = "cooldown"
)

// Decision is the outcome of CanPracticeAtom.
type Decision struct {
	Allowed    bool
	Reason     DenyReason
	RetryAfter *time.Time
	Message    string
}

// Guard applies a Config.
type Guard struct {
	cfg Config
}

// NewGuard returns a guard for cfg.
func NewGuard(cfg Config) *Guard {
	return &Guard{cfg: cfg}
}

// Config returns the guard's limits.
func (g *Guard) Config() Config { return g.cfg }

// CanPracticeAtom decides whether atomID may be served again this session.
// Once the session cap is reached the atom is denied: with reason cooldown
// while the last attempt is within the cooldown window, session-cap after.
func (g *Guard) CanPracticeAtom(atomID string, counts *SessionCounts, lastAttemptAt *time.Time, now time.Time) Decision {
	n := counts.Count(atomID)
	if n < g.cfg.MaxSameAtomPerSession {
		return Decision{Allowed: true}
	}

	last := lastAttemptAt
	if last == nil {
		if t, ok := counts.LastAttempt(atomID); ok {
			last = &t
		}
	}
	if last != nil {
		until := last.Add(time.Duration(g.cfg.CooldownMinutes) * time.Minute)
		if now.Before(until) {
			return Decision{
				Reason:     DenyCooldown,
				RetryAfter: &until,
				Message:    fmt.Sprintf("%s practised %d times; cooling down until %s", atomID, n, until.Format(time.Kitchen)),
			}
		}
	}
	return Decision{
		Reason:  DenySessionCap,
		Message: fmt.Sprintf("%s reached the limit of %d attempts this session", atomID, g.cfg.MaxSameAtomPerSession),
	}
}
