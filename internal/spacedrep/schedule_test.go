package spacedrep

import (
	"math"
	"testing"

	"github.com/abhisek/trainsched/internal/apperr"
)

func TestNextEaseFactor_Values(t *testing.T) {
	tests := []struct {
		q    int
		want float64
	}{
		{5, 2.6},
		{4, 2.5},
		{3, 2.36},
		{2, 2.18},
		{1, 1.96},
		{0, 1.7},
	}
	for _, tt := range tests {
		got := NextEaseFactor(2.5, tt.q)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NextEaseFactor(2.5, %d) = %f, want %f", tt.q, got, tt.want)
		}
	}
}

func TestNextEaseFactor_MonotoneInQuality(t *testing.T) {
	for _, ef := range []float64{1.3, 1.5, 2.0, 2.5, 3.1} {
		prev := NextEaseFactor(ef, 0)
		for q := 1; q <= MaxQuality; q++ {
			got := NextEaseFactor(ef, q)
			if got < prev {
				t.Errorf("ef=%.2f: NextEaseFactor(q=%d) = %f < q=%d value %f", ef, q, got, q-1, prev)
			}
			prev = got
		}
	}
}

func TestNextEaseFactor_Floor(t *testing.T) {
	ef := InitialEaseFactor
	for i := 0; i < 20; i++ {
		ef = NextEaseFactor(ef, 0)
		if ef < MinEaseFactor {
			t.Fatalf("ease factor %f fell below %f", ef, MinEaseFactor)
		}
	}
	if ef != MinEaseFactor {
		t.Errorf("ease factor = %f, want floor %f", ef, MinEaseFactor)
	}
}

func TestQualityFromOutcome(t *testing.T) {
	tests := []struct {
		correct bool
		d       Difficulty
		want    int
	}{
		{true, DifficultyEasy, 5},
		{true, DifficultyMedium, 4},
		{true, DifficultyHard, 3},
		{false, DifficultyEasy, 2},
		{false, DifficultyMedium, 1},
		{false, DifficultyHard, 0},
	}
	for _, tt := range tests {
		got, err := QualityFromOutcome(tt.correct, tt.d)
		if err != nil {
			t.Fatalf("QualityFromOutcome(%v, %s): %v", tt.correct, tt.d, err)
		}
		if got != tt.want {
			t.Errorf("QualityFromOutcome(%v, %s) = %d, want %d", tt.correct, tt.d, got, tt.want)
		}
	}
}

func TestQualityFromOutcome_UnknownDifficulty(t *testing.T) {
	if _, err := QualityFromOutcome(true, "brutal"); !apperr.IsInvalidInput(err) {
		t.Errorf("err = %v, want invalid input", err)
	}
}
