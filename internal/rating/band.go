package rating

import (
	"math"

	"github.com/abhisek/trainsched/internal/apperr"
)

// DefaultTargetWinRate is the success probability the scheduler aims for
// when picking question difficulty.
const DefaultTargetWinRate = 0.7

// Band is a difficulty window centred on the opponent rating that gives the
// learner the target expected score.
type Band struct {
	Target int
	Min    int
	Max    int
}

// Contains reports whether a question rating falls inside the band.
func (b Band) Contains(v int) bool { return v >= b.Min && v <= b.Max }

// TargetBand returns the next difficulty band for r. The width is half the
// rating deviation on each side, so uncertain ratings get wider bands.
func TargetBand(r *Rating, targetWinRate float64) (Band, error) {
	if r == nil {
		return Band{}, apperr.NotFound("rating", "<nil>")
	}
	if !(targetWinRate > 0 && targetWinRate < 1) {
		return Band{}, apperr.Invalid("targetWinRate", "must be in (0,1), got %v", targetWinRate)
	}
	target := float64(r.Value) + 400*math.Log10(1/targetWinRate-1)
	t := clampInt(int(math.Round(target)), MinValue, MaxValue)
	half := r.Deviation / 2
	return Band{
		Target: t,
		Min:    clampInt(t-half, MinValue, MaxValue),
		Max:    clampInt(t+half, MinValue, MaxValue),
	}, nil
}
