package mastery

// Level represents an atom's position in the mastery lifecycle.
type Level string

const (
	LevelUnstarted  Level = "unstarted"
	LevelLearning   Level = "learning"
	LevelPracticing Level = "practicing"
	LevelMastered   Level = "mastered"
	LevelReviewing  Level = "reviewing"
)

// Transition records a mastery level change for display and event logging.
type Transition struct {
	AtomID  string
	From    Level
	To      Level
	Trigger string // "first-attempt", "volume-reached", "gates-met", "accuracy-dropped", "gates-recovered"
}

// transitionRule is one row of the level transition table.
type transitionRule struct {
	from    Level
	to      Level
	trigger string
	when    func(*AtomMastery) bool
}

// transitions is evaluated top to bottom; the first rule whose from-level
// matches and whose guard holds wins. Exactly one rule may fire per attempt.
var transitions = []transitionRule{
	{LevelUnstarted, LevelLearning, "first-attempt", func(m *AtomMastery) bool { return m.TotalAttempts > 0 }},
	{LevelLearning, LevelPracticing, "volume-reached", func(m *AtomMastery) bool { return m.TotalAttempts >= PracticingMinAttempts }},
	{LevelPracticing, LevelMastered, "gates-met", (*AtomMastery).AllGatesMet},
	{LevelMastered, LevelReviewing, "accuracy-dropped", func(m *AtomMastery) bool { return m.RecentAccuracy() < ReviewingAccuracyFloor }},
	{LevelReviewing, LevelMastered, "gates-recovered", (*AtomMastery).AllGatesMet},
}

// nextLevel returns the rule that fires for m, or nil.
func nextLevel(m *AtomMastery) *transitionRule {
	for i := range transitions {
		rule := &transitions[i]
		if rule.from == m.Level && rule.when(m) {
			return rule
		}
	}
	return nil
}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	switch l {
	case LevelUnstarted, LevelLearning, LevelPracticing, LevelMastered, LevelReviewing:
		return true
	}
	return false
}
