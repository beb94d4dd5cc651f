package timing

import (
	"math"
	"sort"
	"time"

	"github.com/abhisek/trainsched/internal/apperr"
)

// AbandonReason says why a question was left unanswered.
type AbandonReason string

const (
	ReasonSkipped     AbandonReason = "skipped"
	ReasonTimeExpired AbandonReason = "time-expired"
	ReasonStrategic   AbandonReason = "strategic"
	ReasonGaveUp      AbandonReason = "gave-up"
	ReasonUnknown     AbandonReason = "unknown"
)

// Inference cut-offs in percent of budget.
const (
	earlyAbandonPercent  = 30.0
	strategicPercent     = 70.0
	expiredPercent       = 100.0
	minPatternOccurrence = 2
)

// AbandonmentEvent records a question the learner walked away from.
type AbandonmentEvent struct {
	QuestionID        string        `json:"question_id"`
	QuestionType      QuestionType  `json:"question_type"`
	ElapsedSeconds    float64       `json:"elapsed_seconds"`
	BudgetSeconds     float64       `json:"budget_seconds"`
	PercentBudgetUsed float64       `json:"percent_budget_used"`
	Reason            AbandonReason `json:"reason"`
	Inferred          bool          `json:"inferred"`
	WasStrategicGuess bool          `json:"was_strategic_guess"`
	At                time.Time     `json:"at"`
}

// RecordAbandonment builds an abandonment event. An empty reason is
// inferred from how much of the budget was used.
func RecordAbandonment(questionID string, qt QuestionType, elapsedSeconds, budgetSeconds float64, reason AbandonReason, at time.Time) (AbandonmentEvent, error) {
	if math.IsNaN(elapsedSeconds) || math.IsInf(elapsedSeconds, 0) || elapsedSeconds < 0 {
		return AbandonmentEvent{}, apperr.Invalid("elapsedSeconds", "must be a non-negative finite number, got %v", elapsedSeconds)
	}
	if math.IsNaN(budgetSeconds) || math.IsInf(budgetSeconds, 0) || budgetSeconds <= 0 {
		return AbandonmentEvent{}, apperr.Invalid("budgetSeconds", "must be positive, got %v", budgetSeconds)
	}
	switch reason {
	case "", ReasonSkipped, ReasonTimeExpired, ReasonStrategic, ReasonGaveUp, ReasonUnknown:
	default:
		return AbandonmentEvent{}, apperr.Invalid("reason", "unknown abandon reason %q", reason)
	}

	ev := AbandonmentEvent{
		QuestionID:        questionID,
		QuestionType:      qt,
		ElapsedSeconds:    elapsedSeconds,
		BudgetSeconds:     budgetSeconds,
		PercentBudgetUsed: elapsedSeconds / budgetSeconds * 100,
		Reason:            reason,
		At:                at,
	}
	if ev.Reason == "" {
		ev.Reason = inferReason(ev.PercentBudgetUsed)
		ev.Inferred = true
	}
	ev.WasStrategicGuess = ev.Reason == ReasonStrategic ||
		(ev.PercentBudgetUsed >= strategicPercent && ev.Reason != ReasonGaveUp)
	return ev, nil
}

func inferReason(pct float64) AbandonReason {
	switch {
	case pct < earlyAbandonPercent:
		return ReasonSkipped
	case pct >= expiredPercent:
		return ReasonTimeExpired
	case pct >= strategicPercent:
		return ReasonStrategic
	default:
		return ReasonUnknown
	}
}

// PatternType names a recurring abandonment behaviour.
type PatternType string

const (
	PatternEarlyAbandon PatternType = "early-abandon"
	PatternLateStruggle PatternType = "late-struggle"
	PatternStrategic    PatternType = "strategic"
)

// Pattern is a behaviour seen at least twice across abandonment events.
type Pattern struct {
	Type          PatternType    `json:"type"`
	Frequency     int            `json:"frequency"`
	QuestionTypes []QuestionType `json:"question_types"`
}

// MinePatterns reports each pattern seen at least twice, in the order
// early-abandon, late-struggle, strategic.
func MinePatterns(events []AbandonmentEvent) []Pattern {
	matchers := []struct {
		typ   PatternType
		match func(AbandonmentEvent) bool
	}{
		{PatternEarlyAbandon, func(e AbandonmentEvent) bool { return e.PercentBudgetUsed < earlyAbandonPercent }},
		{PatternLateStruggle, func(e AbandonmentEvent) bool {
			return e.PercentBudgetUsed > expiredPercent && !e.WasStrategicGuess
		}},
		{PatternStrategic, func(e AbandonmentEvent) bool { return e.WasStrategicGuess }},
	}

	var out []Pattern
	for _, m := range matchers {
		count := 0
		types := make(map[QuestionType]bool)
		for _, e := range events {
			if m.match(e) {
				count++
				types[e.QuestionType] = true
			}
		}
		if count < minPatternOccurrence {
			continue
		}
		p := Pattern{Type: m.typ, Frequency: count}
		for qt := range types {
			p.QuestionTypes = append(p.QuestionTypes, qt)
		}
		sort.Slice(p.QuestionTypes, func(i, j int) bool { return p.QuestionTypes[i] < p.QuestionTypes[j] })
		out = append(out, p)
	}
	return out
}
