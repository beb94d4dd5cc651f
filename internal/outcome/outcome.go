// Package outcome classifies a finished attempt and scores it.
package outcome

import (
	"github.com/abhisek/trainsched/internal/apperr"
	"github.com/abhisek/trainsched/internal/rating"
	"github.com/abhisek/trainsched/internal/timing"
)

// Category is the kind of result an attempt produced.
type Category string

const (
	Timeout      Category = "timeout"
	UpsetLoss    Category = "upset_loss"
	ExpectedLoss Category = "expected_loss"
	LuckyWin     Category = "lucky_win"
	SlowWin      Category = "slow_win"
	CleanWin     Category = "clean_win"
)

// Thresholds on the learner's expected win rate.
const (
	UpsetLossExpected = 0.6
	UpsetWinExpected  = 0.40
)

// XP amounts.
const (
	BaseXP         = 10
	FastBonusXP    = 5
	CleanBonusXP   = 5
	LuckyPenaltyXP = 5
	UpsetBonusXP   = 10
)

// Input describes a finished attempt.
type Input struct {
	WasCorrect     bool
	WasGuessed     bool
	TimeCategory   timing.Category
	LearnerRating  int
	QuestionRating int
}

func (in *Input) overtime() bool { return in.TimeCategory == timing.CategoryOvertime }

// rule is one row of the classification table.
type rule struct {
	category Category
	match    func(in *Input, expected float64) bool
}

// rules is evaluated in order; the first match wins.
var rules = []rule{
	{Timeout, func(in *Input, _ float64) bool { return !in.WasCorrect && in.overtime() }},
	{UpsetLoss, func(in *Input, e float64) bool { return !in.WasCorrect && e > UpsetLossExpected }},
	{ExpectedLoss, func(in *Input, _ float64) bool { return !in.WasCorrect }},
	{LuckyWin, func(in *Input, _ float64) bool { return in.WasGuessed }},
	{SlowWin, func(in *Input, _ float64) bool { return in.overtime() }},
	{CleanWin, func(*Input, float64) bool { return true }},
}

// XPComponent is one line of the XP breakdown.
type XPComponent struct {
	Label  string `json:"label"`
	Amount int    `json:"amount"`
}

// Result is the evaluated attempt.
type Result struct {
	Category    Category      `json:"category"`
	Expected    float64       `json:"expected"`
	IsUpset     bool          `json:"is_upset"`
	XP          int           `json:"xp"`
	XPBreakdown []XPComponent `json:"xp_breakdown,omitempty"`
	Feedback    Feedback      `json:"feedback"`
}

// Evaluate classifies an attempt and computes its XP and feedback.
func Evaluate(in Input) (Result, error) {
	switch in.TimeCategory {
	case timing.CategoryFast, timing.CategoryOptimal, timing.CategorySlow, timing.CategoryOvertime:
	default:
		return Result{}, apperr.Invalid("timeCategory", "unknown time category %q", in.TimeCategory)
	}

	expected := rating.ExpectedScore(in.LearnerRating, in.QuestionRating)
	res := Result{Expected: expected}
	for _, r := range rules {
		if r.match(&in, expected) {
			res.Category = r.category
			break
		}
	}
	res.IsUpset = in.WasCorrect && expected < UpsetWinExpected
	res.XP, res.XPBreakdown = scoreXP(res.Category, res.IsUpset)
	res.Feedback = feedbackFor(res.Category, res.IsUpset)
	return res, nil
}

// scoreXP applies category adjustments first and the upset bonus last,
// so a guessed upset nets base - penalty + bonus.
func scoreXP(c Category, upset bool) (int, []XPComponent) {
	if c == Timeout || c == UpsetLoss || c == ExpectedLoss {
		return 0, nil
	}
	parts := []XPComponent{{Label: "base", Amount: BaseXP}}
	switch c {
	case CleanWin:
		parts = append(parts,
			XPComponent{Label: "fast", Amount: FastBonusXP},
			XPComponent{Label: "clean", Amount: CleanBonusXP})
	case LuckyWin:
		parts = append(parts, XPComponent{Label: "guessed", Amount: -LuckyPenaltyXP})
	}
	if upset {
		parts = append(parts, XPComponent{Label: "upset", Amount: UpsetBonusXP})
	}
	total := 0
	for _, p := range parts {
		total += p.Amount
	}
	return max(0, total), parts
}
