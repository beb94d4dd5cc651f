package timing

import (
	"math"

	"github.com/abhisek/trainsched/internal/apperr"
)

// Category buckets actual time against the budget.
type Category string

const (
	CategoryFast     Category = "fast"
	CategoryOptimal  Category = "optimal"
	CategorySlow     Category = "slow"
	CategoryOvertime Category = "overtime"
)

// CategorizeTimeUsage buckets actual seconds against a budget.
// Boundaries: <0.6 fast, <0.8 optimal, <=1.0 slow, >1.0 overtime.
func CategorizeTimeUsage(actualSeconds, budgetSeconds float64) (Category, error) {
	ratio, err := timeRatio(actualSeconds, budgetSeconds)
	if err != nil {
		return "", err
	}
	return categoryFor(ratio), nil
}

func categoryFor(ratio float64) Category {
	switch {
	case ratio < 0.6:
		return CategoryFast
	case ratio < 0.8:
		return CategoryOptimal
	case ratio <= 1.0:
		return CategorySlow
	default:
		return CategoryOvertime
	}
}

func timeRatio(actualSeconds, budgetSeconds float64) (float64, error) {
	if math.IsNaN(actualSeconds) || math.IsInf(actualSeconds, 0) || actualSeconds < 0 {
		return 0, apperr.Invalid("actualSeconds", "must be a non-negative finite number, got %v", actualSeconds)
	}
	if math.IsNaN(budgetSeconds) || math.IsInf(budgetSeconds, 0) || budgetSeconds <= 0 {
		return 0, apperr.Invalid("budgetSeconds", "must be positive, got %v", budgetSeconds)
	}
	return actualSeconds / budgetSeconds, nil
}

// Result is the immutable record of how long a question took.
type Result struct {
	SessionID      string       `json:"session_id,omitempty"`
	QuestionID     string       `json:"question_id,omitempty"`
	QuestionType   QuestionType `json:"question_type,omitempty"`
	Mode           Mode         `json:"mode,omitempty"`
	BudgetSeconds  float64      `json:"budget_seconds"`
	ElapsedSeconds float64      `json:"elapsed_seconds"`
	TimeRatio      float64      `json:"time_ratio"`
	PercentUsed    int          `json:"percent_used"`
	Category       Category     `json:"category"`
	WasOvertime    bool         `json:"was_overtime"`
	WasExpired     bool         `json:"was_expired"`
}

// NewResult builds a result from elapsed and budget seconds.
func NewResult(elapsedSeconds, budgetSeconds float64) (Result, error) {
	ratio, err := timeRatio(elapsedSeconds, budgetSeconds)
	if err != nil {
		return Result{}, err
	}
	cat := categoryFor(ratio)
	return Result{
		BudgetSeconds:  budgetSeconds,
		ElapsedSeconds: elapsedSeconds,
		TimeRatio:      ratio,
		PercentUsed:    int(math.Round(ratio * 100)),
		Category:       cat,
		WasOvertime:    cat == CategoryOvertime,
	}, nil
}

// expiredResult is the result of a session that ran out of time.
func expiredResult(budgetSeconds float64) Result {
	return Result{
		BudgetSeconds:  budgetSeconds,
		ElapsedSeconds: budgetSeconds,
		TimeRatio:      1.0,
		PercentUsed:    100,
		Category:       CategoryOvertime,
		WasOvertime:    true,
		WasExpired:     true,
	}
}
