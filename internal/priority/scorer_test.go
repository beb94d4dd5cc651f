package priority

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/trainsched/internal/apperr"
)

var now = time.Date(2025, 7, 1, 7, 30, 0, 0, time.UTC)

func daysAgo(d float64) *time.Time {
	t := now.Add(-time.Duration(d * 24 * float64(time.Hour)))
	return &t
}

func factor(t *testing.T, it Item, ft FactorType) Factor {
	t.Helper()
	for _, f := range it.Factors {
		if f.Type == ft {
			return f
		}
	}
	t.Fatalf("factor %s missing from %+v", ft, it.Factors)
	return Factor{}
}

// practiced returns a candidate that triggers no factor on its own.
func practiced(id string) Candidate {
	return Candidate{AtomID: id, Mastery: 0.9, LastPracticedAt: &now}
}

func TestScore_FactorFormulas(t *testing.T) {
	tests := []struct {
		name string
		cand Candidate
		ft   FactorType
		want float64
	}{
		{"blocking gate at 0%", withGate(practiced("a"), 0), FactorBlockingGate, 25},
		{"blocking gate at 60%", withGate(practiced("a"), 60), FactorBlockingGate, 40},
		{"weakness", with(practiced("a"), func(c *Candidate) { c.WeaknessSeverity = 0.5 }), FactorWeaknessCluster, 15},
		{"error frequency", with(practiced("a"), func(c *Candidate) { c.Attempts, c.ErrorRate = 6, 0.4 }), FactorErrorFrequency, 18},
		{"review overdue 3.5 days", with(practiced("a"), func(c *Candidate) { c.ReviewDue, c.DaysOverdue = true, 3.5 }), FactorSpacedRepetition, 10},
		{"review overdue capped", with(practiced("a"), func(c *Candidate) { c.ReviewDue, c.DaysOverdue = true, 30 }), FactorSpacedRepetition, 20},
		{"review just due", with(practiced("a"), func(c *Candidate) { c.ReviewDue = true }), FactorSpacedRepetition, 2},
		{"low mastery", with(practiced("a"), func(c *Candidate) { c.Mastery = 0.2 }), FactorLowMastery, 12},
		{"never practiced", with(practiced("a"), func(c *Candidate) { c.LastPracticedAt = nil }), FactorTimeSincePractice, 20},
		{"stale 7 days", with(practiced("a"), func(c *Candidate) { c.LastPracticedAt = daysAgo(7) }), FactorTimeSincePractice, 10},
		{"stale capped", with(practiced("a"), func(c *Candidate) { c.LastPracticedAt = daysAgo(40) }), FactorTimeSincePractice, 20},
		{"section below target", with(practiced("a"), func(c *Candidate) { c.Section = SectionQuant }), FactorSectionBalance, 5},
	}
	in := Input{Now: now, SectionShares: map[string]float64{SectionQuant: 0.2}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := CalculatePriorities([]Candidate{tt.cand}, in)
			require.NoError(t, err)
			require.Len(t, items, 1)
			f := factor(t, items[0], tt.ft)
			assert.InDelta(t, tt.want, f.Contribution, 1e-9)
			assert.NotEmpty(t, f.Reason)
			assert.Len(t, items[0].Factors, 1, "only the triggered factor applies")
			assert.InDelta(t, tt.want, items[0].Score, 1e-9)
		})
	}
}

func TestScore_InapplicableFactorsOmitted(t *testing.T) {
	c := practiced("a")
	c.Attempts, c.ErrorRate = 2, 0.9 // too few attempts
	c.Section = "awa"
	c.Mastery = 0.5
	items, err := CalculatePriorities([]Candidate{c}, Input{Now: now, SectionShares: map[string]float64{"awa": 0.25}})
	require.NoError(t, err)
	assert.Empty(t, items[0].Factors)
	assert.Zero(t, items[0].Score)
}

func TestScore_NoNegativeContributions(t *testing.T) {
	c := Candidate{
		AtomID: "a", Section: SectionVerbal, BlockingGate: &GateSignal{GateID: "g", PercentComplete: 100},
		WeaknessSeverity: 1, ReviewDue: true, DaysOverdue: 2, Attempts: 10, ErrorRate: 1, Mastery: 0,
	}
	items, err := CalculatePriorities([]Candidate{c}, Input{Now: now})
	require.NoError(t, err)
	require.Len(t, items[0].Factors, 7)
	sum := 0.0
	for _, f := range items[0].Factors {
		assert.Greater(t, f.Contribution, 0.0, f.Type)
		sum += f.Contribution
	}
	assert.InDelta(t, sum, items[0].Score, 1e-9)
}

func TestScore_SortedDescendingStableTies(t *testing.T) {
	cands := []Candidate{
		practiced("c"),
		withGate(practiced("top"), 100),
		practiced("a"),
		practiced("b"),
	}
	items, err := CalculatePriorities(cands, Input{Now: now})
	require.NoError(t, err)
	var ids []string
	for _, it := range items {
		ids = append(ids, it.AtomID)
	}
	assert.Equal(t, []string{"top", "c", "a", "b"}, ids)
}

func TestScore_SectionTargetOverride(t *testing.T) {
	c := practiced("a")
	c.Section = "ir"
	in := Input{
		Now:            now,
		SectionShares:  map[string]float64{"ir": 0.1},
		SectionTargets: map[string]float64{"ir": 0.5},
	}
	items, err := CalculatePriorities([]Candidate{c}, in)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, factor(t, items[0], FactorSectionBalance).Contribution, 1e-9)
}

func TestScore_CustomWeights(t *testing.T) {
	w := DefaultWeights()
	w.LowMastery = 100
	items, err := NewScorer(w).Score([]Candidate{with(practiced("a"), func(c *Candidate) { c.Mastery = 0 })}, Input{Now: now})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, items[0].Score, 1e-9)
}

func TestScore_InvalidCandidates(t *testing.T) {
	tests := []struct {
		name string
		cand Candidate
	}{
		{"empty id", Candidate{}},
		{"severity above one", Candidate{AtomID: "a", WeaknessSeverity: 1.5}},
		{"negative error rate", Candidate{AtomID: "a", ErrorRate: -0.1}},
		{"mastery above one", Candidate{AtomID: "a", Mastery: 2}},
		{"negative attempts", Candidate{AtomID: "a", Attempts: -1}},
		{"negative overdue", Candidate{AtomID: "a", DaysOverdue: -2}},
		{"gate percent", Candidate{AtomID: "a", BlockingGate: &GateSignal{PercentComplete: 140}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CalculatePriorities([]Candidate{tt.cand}, Input{Now: now})
			assert.True(t, apperr.IsInvalidInput(err), "got %v", err)
		})
	}
}

func with(c Candidate, fn func(*Candidate)) Candidate {
	fn(&c)
	return c
}

func withGate(c Candidate, pct int) Candidate {
	c.BlockingGate = &GateSignal{GateID: "level-2", PercentComplete: pct}
	return c
}
