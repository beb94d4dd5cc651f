package antigrind

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateXP(t *testing.T) {
	g := NewGuard(DefaultConfig())
	tests := []struct {
		name       string
		count      int
		correct    bool
		multiplier float64
		xp         int
	}{
		{"first correct", 0, true, 1.0, 10},
		{"at threshold", 3, true, 1.0, 10},
		{"one past threshold", 4, true, 0.8, 8},
		{"practice count five", 5, true, 0.6, 6},
		{"floor", 9, true, 0.2, 2},
		{"incorrect fresh", 0, false, 0.2, 2},
		{"incorrect ground", 8, false, 0.2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			award := g.CalculateXP(10, "a", countsWith("a", tt.count, now), tt.correct)
			assert.InDelta(t, tt.multiplier, award.Multiplier, 1e-9)
			assert.Equal(t, tt.xp, award.XP)
			assert.Equal(t, 10, award.Base)
		})
	}
}

func TestCalculateXP_NeverZeroForHonestMiss(t *testing.T) {
	g := NewGuard(DefaultConfig())
	award := g.CalculateXP(50, "a", nil, false)
	assert.Equal(t, 10, award.XP)
}

func TestStreakBonus(t *testing.T) {
	tests := []struct {
		name                  string
		length, unique, total int
		want                  float64
	}{
		{"one atom repeated", 10, 1, 10, 1.0},
		{"just below diversity floor", 10, 2, 7, 1.0},
		{"diverse short", 4, 3, 4, 1.2},
		{"diverse long capped", 20, 10, 20, 1.5},
		{"empty", 0, 0, 0, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, StreakBonus(tt.length, tt.unique, tt.total), 1e-9)
		})
	}
}

func TestVarietyScore(t *testing.T) {
	tests := []struct {
		attempts []string
		want     int
	}{
		{nil, 0},
		{[]string{"a", "a", "a", "a"}, 50},
		{[]string{"a", "a", "b", "b"}, 100},
		{[]string{"a", "b", "c"}, 100},
		{[]string{"a", "a", "a", "a", "a", "b"}, 67},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VarietyScore(tt.attempts), "%v", tt.attempts)
	}
}
