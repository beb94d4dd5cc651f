package mastery

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/abhisek/trainsched/internal/apperr"
)

// Tracker provides mastery bookkeeping for all atoms of one learner.
type Tracker struct {
	atoms map[string]*AtomMastery
}

// NewTracker creates a tracker, loading previously persisted rows.
func NewTracker(rows []AtomMastery) *Tracker {
	t := &Tracker{atoms: make(map[string]*AtomMastery, len(rows))}
	for i := range rows {
		row := rows[i].clone()
		if !row.Level.Valid() {
			row.Level = LevelUnstarted
		}
		row.refreshGates()
		t.atoms[row.AtomID] = &row
	}
	return t
}

// Get returns the record for an atom.
// Returns an unstarted record if the atom hasn't been encountered.
func (t *Tracker) Get(atomID string) *AtomMastery {
	if m, ok := t.atoms[atomID]; ok {
		return m
	}
	m := newAtomMastery(atomID)
	t.atoms[atomID] = m
	return m
}

// RecordAttempt updates mastery after one attempt.
// Returns a Transition if the attempt changed the level, nil otherwise.
func (t *Tracker) RecordAttempt(atomID string, wasCorrect bool, timeSeconds float64, now time.Time) (*Transition, error) {
	if atomID == "" {
		return nil, apperr.Invalid("atomID", "must not be empty")
	}
	if math.IsNaN(timeSeconds) || math.IsInf(timeSeconds, 0) || timeSeconds < 0 {
		return nil, apperr.Invalid("timeSeconds", "must be a non-negative finite number, got %v", timeSeconds)
	}

	m := t.Get(atomID)
	m.record(wasCorrect, timeSeconds, now)

	rule := nextLevel(m)
	if rule == nil {
		return nil, nil
	}
	m.Level = rule.to
	if rule.to == LevelMastered {
		at := now
		m.MasteredAt = &at
	}
	return &Transition{
		AtomID:  atomID,
		From:    rule.from,
		To:      rule.to,
		Trigger: rule.trigger,
	}, nil
}

// MasteredAtoms returns the set of atom IDs currently mastered.
func (t *Tracker) MasteredAtoms() map[string]bool {
	result := make(map[string]bool)
	for id, m := range t.atoms {
		if m.Level == LevelMastered {
			result[id] = true
		}
	}
	return result
}

// Rows exports every record ordered by atom ID, for persistence.
func (t *Tracker) Rows() []AtomMastery {
	rows := make([]AtomMastery, 0, len(t.atoms))
	for _, m := range t.atoms {
		rows = append(rows, m.clone())
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].AtomID < rows[j].AtomID })
	return rows
}

// clone copies m so the recent window no longer aliases the source.
func (m AtomMastery) clone() AtomMastery {
	m.RecentAttempts = slices.Clone(m.RecentAttempts)
	return m
}
