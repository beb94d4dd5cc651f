// Package timing computes per-question time budgets, runs timer sessions
// and analyses pacing across results.
package timing

import (
	"math"

	"github.com/abhisek/trainsched/internal/apperr"
)

// QuestionType identifies a question format with its own standard time.
type QuestionType string

const (
	SentenceCorrection   QuestionType = "sentence-correction"
	ProblemSolving       QuestionType = "problem-solving"
	DataSufficiency      QuestionType = "data-sufficiency"
	CriticalReasoning    QuestionType = "critical-reasoning"
	DataInsights         QuestionType = "data-insights"
	ReadingComprehension QuestionType = "reading-comprehension"
	Essay                QuestionType = "essay"
)

// standardSeconds is the per-type time allowance at mode multiplier 1.0.
var standardSeconds = map[QuestionType]int{
	SentenceCorrection:   60,
	ProblemSolving:       120,
	DataSufficiency:      120,
	CriticalReasoning:    120,
	DataInsights:         150,
	ReadingComprehension: 180,
	Essay:                1800,
}

// StandardSeconds returns the standard time for a question type.
func StandardSeconds(qt QuestionType) (int, error) {
	s, ok := standardSeconds[qt]
	if !ok {
		return 0, apperr.Invalid("questionType", "unknown question type %q", qt)
	}
	return s, nil
}

// QuestionTypes lists the known question types in a stable order.
func QuestionTypes() []QuestionType {
	return []QuestionType{
		SentenceCorrection, ProblemSolving, DataSufficiency, CriticalReasoning,
		DataInsights, ReadingComprehension, Essay,
	}
}

// Mode is the timing regime derived from learner level.
type Mode string

const (
	ModeLearning      Mode = "learning"
	ModeExtended      Mode = "extended"
	ModeStandard      Mode = "standard"
	ModeStrict        Mode = "strict"
	ModeTestRealistic Mode = "test-realistic"
)

// ModeConfig holds the parameters of one timing mode.
type ModeConfig struct {
	Mode             Mode
	Multiplier       float64
	WarningThreshold float64
	Enforced         bool
}

// modeTable is indexed by (level-1)/2 for levels 1..10.
var modeTable = [5]ModeConfig{
	{ModeLearning, 3.0, 0.90, false},
	{ModeExtended, 1.5, 0.85, false},
	{ModeStandard, 1.0, 0.80, false},
	{ModeStrict, 1.0, 0.80, true},
	{ModeTestRealistic, 1.0, 0.70, true},
}

const (
	MinLevel = 1
	MaxLevel = 10
)

// ModeForLevel returns the mode for a learner level, clamped to [1,10].
func ModeForLevel(level int) ModeConfig {
	level = max(MinLevel, min(MaxLevel, level))
	return modeTable[(level-1)/2]
}

// Budget is the time allowance for one question.
type Budget struct {
	QuestionType      QuestionType `json:"question_type"`
	Level             int          `json:"level"`
	Mode              Mode         `json:"mode"`
	StandardSeconds   int          `json:"standard_seconds"`
	AdjustedSeconds   int          `json:"adjusted_seconds"`
	WarningThreshold  float64      `json:"warning_threshold"`
	StrictEnforcement bool         `json:"strict_enforcement"`
}

// CalculateBudget derives the budget for a question type at a learner level.
// A customMultiplier of 0 means no adjustment.
func CalculateBudget(qt QuestionType, level int, customMultiplier float64) (Budget, error) {
	std, err := StandardSeconds(qt)
	if err != nil {
		return Budget{}, err
	}
	if math.IsNaN(customMultiplier) || math.IsInf(customMultiplier, 0) || customMultiplier < 0 {
		return Budget{}, apperr.Invalid("customMultiplier", "must be a non-negative finite number, got %v", customMultiplier)
	}
	if customMultiplier == 0 {
		customMultiplier = 1
	}

	mc := ModeForLevel(level)
	adjusted := int(math.Round(float64(std) * mc.Multiplier * customMultiplier))
	return Budget{
		QuestionType:      qt,
		Level:             max(MinLevel, min(MaxLevel, level)),
		Mode:              mc.Mode,
		StandardSeconds:   std,
		AdjustedSeconds:   max(1, adjusted),
		WarningThreshold:  mc.WarningThreshold,
		StrictEnforcement: mc.Enforced,
	}, nil
}
