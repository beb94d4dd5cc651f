// Package antigrind caps the reward for repeating the same atom within a
// session.
package antigrind

import "time"

// SessionCounts tracks per-atom attempts within one practice session.
type SessionCounts struct {
	counts map[string]int
	last   map[string]time.Time
	total  int
}

// NewSessionCounts returns empty counters.
func NewSessionCounts() *SessionCounts {
	return &SessionCounts{
		counts: make(map[string]int),
		last:   make(map[string]time.Time),
	}
}

// Record notes one attempt on an atom.
func (c *SessionCounts) Record(atomID string, at time.Time) {
	c.counts[atomID]++
	c.total++
	if prev, ok := c.last[atomID]; !ok || at.After(prev) {
		c.last[atomID] = at
	}
}

// Count returns attempts on an atom this session.
func (c *SessionCounts) Count(atomID string) int {
	if c == nil {
		return 0
	}
	return c.counts[atomID]
}

// LastAttempt returns when the atom was last attempted this session.
func (c *SessionCounts) LastAttempt(atomID string) (time.Time, bool) {
	if c == nil {
		return time.Time{}, false
	}
	t, ok := c.last[atomID]
	return t, ok
}

// Total returns the number of attempts recorded.
func (c *SessionCounts) Total() int {
	if c == nil {
		return 0
	}
	return c.total
}

// Unique returns the number of distinct atoms attempted.
func (c *SessionCounts) Unique() int {
	if c == nil {
		return 0
	}
	return len(c.counts)
}
