package rating

import "time"

// Scope is the granularity a rating is tracked at.
type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeSection Scope = "section"
	ScopeTopic   Scope = "topic"
	ScopeAtom    Scope = "atom"

	// ScopeQuestion tracks the difficulty of a single question.
	ScopeQuestion Scope = "question"
)

// StreakType is the direction of the current streak.
type StreakType string

const (
	StreakNone StreakType = ""
	StreakWin  StreakType = "win"
	StreakLoss StreakType = "loss"
)

const (
	// DefaultValue is the starting rating for a newly encountered scope.
	DefaultValue = 500
	// DefaultDeviation is the starting uncertainty.
	DefaultDeviation = 350
	// DefaultVolatility is the starting volatility.
	DefaultVolatility = 0.06

	MinValue     = 100
	MaxValue     = 900
	MinDeviation = 30
	MaxDeviation = 500

	// HistorySize is the length of the recent-outcome ring.
	HistorySize = 5
)

// Key identifies a rating by scope and scope key.
type Key struct {
	Scope Scope
	ID    string
}

func (k Key) String() string { return string(k.Scope) + "/" + k.ID }

// Rating is an ELO-style estimate of learner skill (or question difficulty)
// for one scope.
type Rating struct {
	Scope         Scope      `json:"scope"`
	ScopeKey      string     `json:"scope_key"`
	Value         int        `json:"value"`
	Deviation     int        `json:"deviation"`
	Volatility    float64    `json:"volatility"`
	GamesPlayed   int        `json:"games_played"`
	PeakValue     int        `json:"peak_value"`
	PeakAt        *time.Time `json:"peak_at,omitempty"`
	History       []bool     `json:"history"` // oldest first, at most HistorySize
	CurrentStreak int        `json:"current_streak"`
	StreakType    StreakType `json:"streak_type"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// New returns a rating at the default starting point.
func New(scope Scope, key string, now time.Time) *Rating {
	return &Rating{
		Scope:      scope,
		ScopeKey:   key,
		Value:      DefaultValue,
		Deviation:  DefaultDeviation,
		Volatility: DefaultVolatility,
		PeakValue:  DefaultValue,
		UpdatedAt:  now,
	}
}

// Key returns the rating's registry key.
func (r *Rating) Key() Key { return Key{Scope: r.Scope, ID: r.ScopeKey} }

// RecentWinRate returns the share of wins in the outcome ring, or 0 when empty.
func (r *Rating) RecentWinRate() float64 {
	if len(r.History) == 0 {
		return 0
	}
	wins := 0
	for _, w := range r.History {
		if w {
			wins++
		}
	}
	return float64(wins) / float64(len(r.History))
}
