package priority

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/abhisek/trainsched/internal/apperr"
)

// GateSignal marks a candidate as blocking an unmet gate.
type GateSignal struct {
	GateID          string
	PercentComplete int
}

// Candidate carries every input signal for one atom. Zero values mean the
// signal does not apply, except LastPracticedAt where nil means never.
type Candidate struct {
	AtomID           string
	Section          string
	BlockingGate     *GateSignal
	WeaknessSeverity float64
	ReviewDue        bool
	DaysOverdue      float64
	LastPracticedAt  *time.Time
	Attempts         int
	ErrorRate        float64
	Mastery          float64
}

// Item is a ranked candidate.
type Item struct {
	AtomID  string   `json:"atom_id"`
	Section string   `json:"section,omitempty"`
	Score   float64  `json:"score"`
	Factors []Factor `json:"factors"`
}

// HasFactor reports whether ft contributed to the item.
func (it Item) HasFactor(ft FactorType) bool {
	for _, f := range it.Factors {
		if f.Type == ft {
			return true
		}
	}
	return false
}

// Input is the planning-time context shared by all candidates.
type Input struct {
	Now time.Time
	// SectionShares is each section's share of recent practice, 0-1.
	SectionShares map[string]float64
	// SectionTargets overrides DefaultSectionTarget per section.
	SectionTargets map[string]float64
}

// Scorer computes priorities with fixed weights.
type Scorer struct {
	weights Weights
}

// NewScorer returns a scorer using w.
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// CalculatePriorities scores candidates with the default weights.
func CalculatePriorities(cands []Candidate, in Input) ([]Item, error) {
	return NewScorer(DefaultWeights()).Score(cands, in)
}

// Score returns candidates ranked by descending score. Equal scores keep
// the caller's order.
func (s *Scorer) Score(cands []Candidate, in Input) ([]Item, error) {
	items := make([]Item, 0, len(cands))
	for i := range cands {
		if err := validateCandidate(&cands[i]); err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		items = append(items, s.scoreOne(&cands[i], in))
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	return items, nil
}

func (s *Scorer) scoreOne(c *Candidate, in Input) Item {
	it := Item{AtomID: c.AtomID, Section: c.Section}
	add := func(ft FactorType, weight, value float64, reason string) {
		contrib := weight * value
		if contrib <= 0 {
			return
		}
		it.Factors = append(it.Factors, Factor{Type: ft, Weight: weight, Value: value, Contribution: contrib, Reason: reason})
		it.Score += contrib
	}
	w := s.weights

	if g := c.BlockingGate; g != nil {
		v := blockingBaseFraction + blockingBaseFraction*float64(g.PercentComplete)/100
		add(FactorBlockingGate, w.BlockingGate, v, fmt.Sprintf("blocks gate %s (%d%% complete)", g.GateID, g.PercentComplete))
	}

	if c.WeaknessSeverity > 0 {
		add(FactorWeaknessCluster, w.WeaknessCluster, c.WeaknessSeverity,
			fmt.Sprintf("part of a weakness cluster (severity %.2f)", c.WeaknessSeverity))
	}

	if c.Attempts >= errorMinAttempts && c.ErrorRate >= errorMinRate {
		add(FactorErrorFrequency, w.ErrorFrequency, c.ErrorRate*errorAmplifier,
			fmt.Sprintf("%.0f%% errors over %d attempts", c.ErrorRate*100, c.Attempts))
	}

	if c.ReviewDue {
		v := math.Max(spacedMinValue, math.Min(c.DaysOverdue, spacedCapDays)/spacedCapDays)
		add(FactorSpacedRepetition, w.SpacedRepetition, v, fmt.Sprintf("review due (%.1f days overdue)", c.DaysOverdue))
	}

	if c.Mastery < lowMasteryCeiling {
		v := (lowMasteryCeiling - c.Mastery) / lowMasteryCeiling
		add(FactorLowMastery, w.LowMastery, v, fmt.Sprintf("mastery %.0f%%", c.Mastery*100))
	}

	if c.LastPracticedAt == nil {
		add(FactorTimeSincePractice, w.TimeSincePractice, 1, "never practiced")
	} else if days := in.Now.Sub(*c.LastPracticedAt).Hours() / 24; days > 0 {
		add(FactorTimeSincePractice, w.TimeSincePractice, math.Min(days, stalenessCapDays)/stalenessCapDays,
			fmt.Sprintf("last practiced %.1f days ago", days))
	}

	if c.Section != "" {
		target, ok := in.SectionTargets[c.Section]
		if !ok {
			target = DefaultSectionTarget(c.Section)
		}
		share := in.SectionShares[c.Section]
		if target > 0 && share < target {
			add(FactorSectionBalance, w.SectionBalance, (target-share)/target,
				fmt.Sprintf("%s at %.0f%% of recent practice, target %.0f%%", c.Section, share*100, target*100))
		}
	}
	return it
}

func validateCandidate(c *Candidate) error {
	if c.AtomID == "" {
		return apperr.Invalid("atomID", "must not be empty")
	}
	if err := unit("weaknessSeverity", c.WeaknessSeverity); err != nil {
		return err
	}
	if err := unit("errorRate", c.ErrorRate); err != nil {
		return err
	}
	if err := unit("mastery", c.Mastery); err != nil {
		return err
	}
	if c.Attempts < 0 {
		return apperr.Invalid("attempts", "must be >= 0, got %d", c.Attempts)
	}
	if math.IsNaN(c.DaysOverdue) || math.IsInf(c.DaysOverdue, 0) || c.DaysOverdue < 0 {
		return apperr.Invalid("daysOverdue", "must be a non-negative finite number, got %v", c.DaysOverdue)
	}
	if g := c.BlockingGate; g != nil && (g.PercentComplete < 0 || g.PercentComplete > 100) {
		return apperr.Invalid("blockingGate.percentComplete", "must be in [0,100], got %d", g.PercentComplete)
	}
	return nil
}

func unit(field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return apperr.Invalid(field, "must be in [0,1], got %v", v)
	}
	return nil
}
