package spacedrep

import (
	"math"

	"github.com/abhisek/trainsched/internal/apperr"
)

// SM-2 constants.
const (
	InitialEaseFactor = 2.5
	MinEaseFactor     = 1.3

	// PassingQuality is the lowest quality that counts as a successful recall.
	PassingQuality = 3
	MaxQuality     = 5

	FirstIntervalDays  = 1
	SecondIntervalDays = 6
)

// Difficulty is the caller's difficulty label for the reviewed question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// NextEaseFactor applies the SM-2 ease adjustment for quality q.
// The result is non-decreasing in q and never below MinEaseFactor.
func NextEaseFactor(ef float64, q int) float64 {
	miss := float64(MaxQuality - q)
	next := ef + 0.1 - miss*(0.08+miss*0.02)
	return math.Max(MinEaseFactor, next)
}

// QualityFromOutcome maps a raw answer onto the 0-5 SM-2 quality scale.
// A wrong answer on an easy question scores lower than one on a hard question.
func QualityFromOutcome(correct bool, d Difficulty) (int, error) {
	var q int
	switch d {
	case DifficultyEasy:
		q = 2
	case DifficultyMedium:
		q = 1
	case DifficultyHard:
		q = 0
	default:
		return 0, apperr.Invalid("difficulty", "unknown difficulty %q", d)
	}
	if correct {
		q += 3
	}
	return q, nil
}

func validQuality(q int) error {
	if q < 0 || q > MaxQuality {
		return apperr.Invalid("quality", "must be in [0,%d], got %d", MaxQuality, q)
	}
	return nil
}
