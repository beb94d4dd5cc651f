package mastery

import "time"

const (
	// RecentWindow is the size of the rolling outcome window.
	RecentWindow = 10

	AccuracyGateThreshold  = 0.85
	AccuracyGateMinRecent  = 5
	VolumeGateMinAttempts  = 10
	StreakGateMinRun       = 5
	PracticingMinAttempts  = 5
	ReviewingAccuracyFloor = 0.70
)

// AtomMastery holds all mastery data for a single skill atom.
type AtomMastery struct {
	AtomID          string     `json:"atom_id"`
	Section         string     `json:"section,omitempty"`
	TotalAttempts   int        `json:"total_attempts"`
	CorrectAttempts int        `json:"correct_attempts"`
	RecentAttempts  []bool     `json:"recent_attempts"` // oldest first
	AvgTime         float64    `json:"avg_time"`
	BestTime        *float64   `json:"best_time,omitempty"`
	AccuracyGate    bool       `json:"accuracy_gate"`
	VolumeGate      bool       `json:"volume_gate"`
	StreakGate      bool       `json:"streak_gate"`
	Level           Level      `json:"level"`
	LastAttemptAt   *time.Time `json:"last_attempt_at,omitempty"`
	MasteredAt      *time.Time `json:"mastered_at,omitempty"`
}

// newAtomMastery returns an unstarted record.
func newAtomMastery(atomID string) *AtomMastery {
	return &AtomMastery{AtomID: atomID, Level: LevelUnstarted}
}

// Accuracy returns lifetime accuracy.
func (m *AtomMastery) Accuracy() float64 {
	if m.TotalAttempts == 0 {
		return 0.0
	}
	return float64(m.CorrectAttempts) / float64(m.TotalAttempts)
}

// RecentAccuracy returns accuracy over the rolling window.
func (m *AtomMastery) RecentAccuracy() float64 {
	if len(m.RecentAttempts) == 0 {
		return 0.0
	}
	correct := 0
	for _, ok := range m.RecentAttempts {
		if ok {
			correct++
		}
	}
	return float64(correct) / float64(len(m.RecentAttempts))
}

// TrailingStreak returns the run of correct answers at the end of the window.
func (m *AtomMastery) TrailingStreak() int {
	return trailingRun(m.RecentAttempts)
}

// AllGatesMet reports whether accuracy, volume and streak gates all hold.
func (m *AtomMastery) AllGatesMet() bool {
	return m.AccuracyGate && m.VolumeGate && m.StreakGate
}

// ErrorRate returns the lifetime share of incorrect attempts.
func (m *AtomMastery) ErrorRate() float64 {
	if m.TotalAttempts == 0 {
		return 0.0
	}
	return float64(m.TotalAttempts-m.CorrectAttempts) / float64(m.TotalAttempts)
}

// record folds one attempt into the counters and window.
func (m *AtomMastery) record(correct bool, timeSeconds float64, now time.Time) {
	m.TotalAttempts++
	if correct {
		m.CorrectAttempts++
	}

	m.RecentAttempts = append(m.RecentAttempts, correct)
	if len(m.RecentAttempts) > RecentWindow {
		m.RecentAttempts = m.RecentAttempts[len(m.RecentAttempts)-RecentWindow:]
	}

	m.AvgTime += (timeSeconds - m.AvgTime) / float64(m.TotalAttempts)
	if correct && (m.BestTime == nil || timeSeconds < *m.BestTime) {
		best := timeSeconds
		m.BestTime = &best
	}

	at := now
	m.LastAttemptAt = &at
	m.refreshGates()
}

func (m *AtomMastery) refreshGates() {
	m.AccuracyGate = len(m.RecentAttempts) >= AccuracyGateMinRecent && m.RecentAccuracy() >= AccuracyGateThreshold
	m.VolumeGate = m.TotalAttempts >= VolumeGateMinAttempts
	m.StreakGate = m.TrailingStreak() >= StreakGateMinRun
}

func trailingRun(window []bool) int {
	run := 0
	for i := len(window) - 1; i >= 0 && window[i]; i-- {
		run++
	}
	return run
}
