package rating

import (
	"math"
	"time"

	"github.com/abhisek/trainsched/internal/apperr"
)

// Outcome is one result to fold into a rating.
type Outcome struct {
	OpponentValue int
	WasCorrect    bool
	// KFactor overrides the adaptive K when positive.
	KFactor float64
	At      time.Time
}

// Change summarises what ApplyOutcome did.
type Change struct {
	Expected     float64
	KFactor      float64
	OldValue     int
	NewValue     int
	Delta        int
	OldDeviation int
	NewDeviation int
	NewPeak      bool
}

// ExpectedScore returns the probability that a player rated a beats one
// rated b. It is symmetric (ExpectedScore(a,b)+ExpectedScore(b,a) == 1) and
// equals 0.5 exactly when a == b.
func ExpectedScore(a, b int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(b-a)/400.0))
}

// KFactor returns the adaptive adjustment strength for r.
// New ratings move fast; mature ratings settle with their uncertainty.
func KFactor(r *Rating) float64 {
	switch {
	case r.GamesPlayed < 10:
		return 40
	case r.GamesPlayed < 30:
		return 32
	case r.GamesPlayed < 100:
		return 24
	default:
		return math.Max(16, 20*math.Min(1, float64(r.Deviation)/100))
	}
}

// ApplyOutcome folds one result into r and returns the change.
// A nil rating means the scope was never created and fails with ErrNotFound.
func ApplyOutcome(r *Rating, o Outcome) (Change, error) {
	if r == nil {
		return Change{}, apperr.NotFound("rating", "<nil>")
	}
	if o.KFactor < 0 || math.IsNaN(o.KFactor) || math.IsInf(o.KFactor, 0) {
		return Change{}, apperr.Invalid("kFactor", "must be a non-negative finite number, got %v", o.KFactor)
	}

	k := o.KFactor
	if k == 0 {
		k = KFactor(r)
	}

	expected := ExpectedScore(r.Value, o.OpponentValue)
	actual := 0.0
	if o.WasCorrect {
		actual = 1.0
	}

	change := Change{
		Expected:     expected,
		KFactor:      k,
		OldValue:     r.Value,
		OldDeviation: r.Deviation,
	}

	newValue := int(math.Round(float64(r.Value) + k*(actual-expected)))
	r.Value = clampInt(newValue, MinValue, MaxValue)

	decay := math.Max(0.95, 1-float64(r.GamesPlayed)/500)
	r.Deviation = clampInt(int(math.Round(float64(r.Deviation)*decay)), MinDeviation, MaxDeviation)

	r.Volatility = 0.9*r.Volatility + 0.1*math.Abs(actual-expected)
	r.GamesPlayed++

	r.History = append(r.History, o.WasCorrect)
	if len(r.History) > HistorySize {
		r.History = r.History[len(r.History)-HistorySize:]
	}

	updateStreak(r, o.WasCorrect)

	if r.Value > r.PeakValue {
		r.PeakValue = r.Value
		at := o.At
		r.PeakAt = &at
		change.NewPeak = true
	}
	r.UpdatedAt = o.At

	change.NewValue = r.Value
	change.Delta = r.Value - change.OldValue
	change.NewDeviation = r.Deviation
	return change, nil
}

func updateStreak(r *Rating, win bool) {
	want := StreakLoss
	if win {
		want = StreakWin
	}
	if r.StreakType == want {
		r.CurrentStreak++
		return
	}
	r.StreakType = want
	r.CurrentStreak = 1
}

// Match updates a learner rating and a question rating from one attempt so
// both converge. The question wins whenever the learner is wrong.
func Match(learner, question *Rating, correct bool, at time.Time) (Change, Change, error) {
	if learner == nil {
		return Change{}, Change{}, apperr.NotFound("rating", "learner")
	}
	if question == nil {
		return Change{}, Change{}, apperr.NotFound("rating", "question")
	}
	learnerBefore := learner.Value
	lc, err := ApplyOutcome(learner, Outcome{OpponentValue: question.Value, WasCorrect: correct, At: at})
	if err != nil {
		return Change{}, Change{}, err
	}
	qc, err := ApplyOutcome(question, Outcome{OpponentValue: learnerBefore, WasCorrect: !correct, At: at})
	if err != nil {
		return Change{}, Change{}, err
	}
	return lc, qc, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
