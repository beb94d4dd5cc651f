// Package priority ranks practice candidates by summing weighted signals.
package priority

// FactorType names one ranking signal.
type FactorType string

const (
	FactorBlockingGate      FactorType = "blocking-gate"
	FactorWeaknessCluster   FactorType = "weakness-cluster"
	FactorErrorFrequency    FactorType = "error-frequency"
	FactorSpacedRepetition  FactorType = "spaced-repetition"
	FactorLowMastery        FactorType = "low-mastery"
	FactorTimeSincePractice FactorType = "time-since-practice"
	FactorSectionBalance    FactorType = "section-balance"
)

// Weights holds the maximum contribution of each factor.
type Weights struct {
	BlockingGate      float64 `json:"blocking_gate" validate:"gte=0"`
	WeaknessCluster   float64 `json:"weakness_cluster" validate:"gte=0"`
	ErrorFrequency    float64 `json:"error_frequency" validate:"gte=0"`
	SpacedRepetition  float64 `json:"spaced_repetition" validate:"gte=0"`
	LowMastery        float64 `json:"low_mastery" validate:"gte=0"`
	TimeSincePractice float64 `json:"time_since_practice" validate:"gte=0"`
	SectionBalance    float64 `json:"section_balance" validate:"gte=0"`
}

// DefaultWeights returns the standard weighting, highest first:
// blocking gates, then weaknesses and errors, then reviews, low mastery
// and staleness, then section balance.
func DefaultWeights() Weights {
	return Weights{
		BlockingGate:      50,
		WeaknessCluster:   30,
		ErrorFrequency:    30,
		SpacedRepetition:  20,
		LowMastery:        20,
		TimeSincePractice: 20,
		SectionBalance:    10,
	}
}

// Factor is one applicable signal and what it added to the score.
type Factor struct {
	Type         FactorType `json:"type"`
	Weight       float64    `json:"weight"`
	Value        float64    `json:"value"`
	Contribution float64    `json:"contribution"`
	Reason       string     `json:"reason"`
}

// Section names with a larger target share.
const (
	SectionQuant  = "quant"
	SectionVerbal = "verbal"
)

// DefaultSectionTarget returns the target share of recent practice for a section.
func DefaultSectionTarget(section string) float64 {
	switch section {
	case SectionQuant, SectionVerbal:
		return 0.40
	default:
		return 0.20
	}
}

// Factor thresholds.
const (
	spacedCapDays        = 7.0
	spacedMinValue       = 0.1
	stalenessCapDays     = 14.0
	errorMinAttempts     = 3
	errorMinRate         = 0.30
	errorAmplifier       = 1.5
	lowMasteryCeiling    = 0.5
	blockingBaseFraction = 0.5
)
