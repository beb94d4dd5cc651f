package timing

import (
	"math"

	"github.com/abhisek/trainsched/internal/apperr"
)

// DriftSeverity grades the size of a pacing change.
type DriftSeverity string

const (
	DriftNone     DriftSeverity = "none"
	DriftMild     DriftSeverity = "mild"
	DriftModerate DriftSeverity = "moderate"
	DriftSevere   DriftSeverity = "severe"
)

// DriftDirection is the sign of a pacing change.
type DriftDirection string

const (
	DriftStable   DriftDirection = "stable"
	DriftSlowing  DriftDirection = "slowing"
	DriftSpeeding DriftDirection = "speeding"
)

// minHalvesSamples is the history needed when comparing halves.
const minHalvesSamples = 4

// Drift describes how time-per-question changed across a result sequence.
// Too little history is not an error: SufficientData is false and
// Severity is none.
type Drift struct {
	Magnitude      float64        `json:"magnitude"`
	Severity       DriftSeverity  `json:"severity"`
	Direction      DriftDirection `json:"direction"`
	SufficientData bool           `json:"sufficient_data"`
	SampleCount    int            `json:"sample_count"`
	WindowSize     int            `json:"window_size"`
	WindowMeans    []float64      `json:"window_means,omitempty"`
}

// AnalyzeDrift compares mean time ratios early and late in results.
// window 0 splits the sequence into halves; window w > 0 splits it into
// consecutive windows of w results (a trailing remainder is ignored) and
// compares the first with the last.
func AnalyzeDrift(results []Result, window int) (Drift, error) {
	if window < 0 {
		return Drift{}, apperr.Invalid("window", "must be >= 0, got %d", window)
	}
	for i, r := range results {
		if math.IsNaN(r.TimeRatio) || math.IsInf(r.TimeRatio, 0) || r.TimeRatio < 0 {
			return Drift{}, apperr.Invalid("results", "result %d has time ratio %v", i, r.TimeRatio)
		}
	}

	d := Drift{
		Severity:    DriftNone,
		Direction:   DriftStable,
		SampleCount: len(results),
		WindowSize:  window,
	}

	var means []float64
	if window == 0 {
		if len(results) < minHalvesSamples {
			return d, nil
		}
		half := len(results) / 2
		means = []float64{meanRatio(results[:half]), meanRatio(results[half:])}
	} else {
		if len(results) < 2*window {
			return d, nil
		}
		for i := 0; i+window <= len(results); i += window {
			means = append(means, meanRatio(results[i:i+window]))
		}
	}

	d.SufficientData = true
	d.WindowMeans = means
	earlier, later := means[0], means[len(means)-1]
	if earlier > 0 {
		d.Magnitude = (later - earlier) / earlier
	}
	d.Severity = driftSeverity(math.Abs(d.Magnitude))
	switch {
	case d.Magnitude > 0:
		d.Direction = DriftSlowing
	case d.Magnitude < 0:
		d.Direction = DriftSpeeding
	}
	return d, nil
}

func driftSeverity(mag float64) DriftSeverity {
	switch {
	case mag < 0.15:
		return DriftNone
	case mag < 0.25:
		return DriftMild
	case mag < 0.40:
		return DriftModerate
	default:
		return DriftSevere
	}
}

func meanRatio(rs []Result) float64 {
	if len(rs) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range rs {
		sum += r.TimeRatio
	}
	return sum / float64(len(rs))
}
