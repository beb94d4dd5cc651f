package trainer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/abhisek/trainsched/internal/mastery"
	"github.com/abhisek/trainsched/internal/priority"
	"github.com/abhisek/trainsched/internal/session"
	"github.com/abhisek/trainsched/internal/spacedrep"
)

// Weakness detection.
const (
	weakMinAttempts = mastery.AccuracyGateMinRecent
	weakAccuracy    = 0.6
	// clusterSize is the number of weak atoms in one section that makes
	// them a cluster; lone weak atoms count at half severity.
	clusterSize = 2

	// shareWindowDays is how far back section balance looks.
	shareWindowDays = 7
)

// BuildPlan ranks every known atom and lays out today's session.
func (s *Service) BuildPlan(ctx context.Context, now time.Time) (*session.Plan, []priority.Item, error) {
	tracker, err := s.loadTracker(ctx)
	if err != nil {
		return nil, nil, err
	}
	sched, err := s.loadScheduler(ctx)
	if err != nil {
		return nil, nil, err
	}
	shares, err := s.store.Events().SectionShares(ctx, now.AddDate(0, 0, -shareWindowDays))
	if err != nil {
		return nil, nil, err
	}
	counts, todays, err := s.today(ctx, now)
	if err != nil {
		return nil, nil, err
	}

	cands, err := s.candidates(tracker.Rows(), sched.Items(), now)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.scorer.Score(cands, priority.Input{Now: now, SectionShares: shares})
	if err != nil {
		return nil, nil, fmt.Errorf("score candidates: %w", err)
	}

	var spent float64
	last := make(map[string]time.Time)
	for _, e := range todays {
		spent += e.TimeSeconds
		if e.AbandonReason == "" && e.At.After(last[e.AtomID]) {
			last[e.AtomID] = e.At
		}
	}
	completed := min(int(spent/60), s.cfg.DailyTargetMinutes)

	plan, err := s.planner.Build(session.Input{
		Now:              now,
		TargetMinutes:    s.cfg.DailyTargetMinutes,
		CompletedMinutes: completed,
		Priorities:       items,
		Counts:           counts,
		LastAttempts:     last,
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.InfoContext(ctx, "plan built",
		"candidates", len(cands), "blocks", len(plan.Blocks), "planned_minutes", plan.PlannedMinutes, "skipped", len(plan.Skipped))
	return plan, items, nil
}

// candidates turns stored rows into scorer input, one per atom, ordered by
// atom id so equal scores rank deterministically.
func (s *Service) candidates(rows []mastery.AtomMastery, reviews []spacedrep.Item, now time.Time) ([]priority.Candidate, error) {
	byAtom := make(map[string]*priority.Candidate)
	ensure := func(id string) *priority.Candidate {
		c, ok := byAtom[id]
		if !ok {
			c = &priority.Candidate{AtomID: id}
			byAtom[id] = c
		}
		return c
	}

	for i := range rows {
		r := &rows[i]
		c := ensure(r.AtomID)
		c.Section = r.Section
		c.Attempts = r.TotalAttempts
		c.ErrorRate = r.ErrorRate()
		c.Mastery = masteryScore(r)
		c.LastPracticedAt = r.LastAttemptAt
	}
	for i := range reviews {
		it := &reviews[i]
		if !it.IsDue(now) {
			continue
		}
		c := ensure(it.ItemID)
		c.ReviewDue = true
		c.DaysOverdue = it.OverdueDays(now)
	}

	for atom, sev := range weaknesses(rows) {
		ensure(atom).WeaknessSeverity = sev
	}

	blocking, err := s.blockingGates(rows)
	if err != nil {
		return nil, err
	}
	for atom, g := range blocking {
		ensure(atom).BlockingGate = g
	}

	out := make([]priority.Candidate, 0, len(byAtom))
	for _, c := range byAtom {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AtomID < out[j].AtomID })
	return out, nil
}

// masteryScore maps a row to [0,1]: 1 once mastered, otherwise lifetime
// accuracy scaled by how much of the volume gate has been reached.
func masteryScore(r *mastery.AtomMastery) float64 {
	switch r.Level {
	case mastery.LevelMastered:
		return 1
	case mastery.LevelUnstarted:
		return 0
	}
	volume := math.Min(1, float64(r.TotalAttempts)/mastery.VolumeGateMinAttempts)
	return r.Accuracy() * volume
}

// weaknesses returns a severity in (0,1] for atoms whose recent accuracy is
// below weakAccuracy after enough attempts.
func weaknesses(rows []mastery.AtomMastery) map[string]float64 {
	weak := make(map[string]float64)
	perSection := make(map[string]int)
	for i := range rows {
		r := &rows[i]
		if r.TotalAttempts < weakMinAttempts {
			continue
		}
		acc := r.RecentAccuracy()
		if acc >= weakAccuracy {
			continue
		}
		weak[r.AtomID] = (weakAccuracy - acc) / weakAccuracy
		perSection[r.Section]++
	}
	for i := range rows {
		r := &rows[i]
		if sev, ok := weak[r.AtomID]; ok && (r.Section == "" || perSection[r.Section] < clusterSize) {
			weak[r.AtomID] = sev / 2
		}
	}
	for id, sev := range weak {
		if sev <= 0 {
			delete(weak, id)
		}
	}
	return weak
}

// blockingGates marks the unmastered atoms named by each unfinished gate.
// When several gates claim an atom, the one closest to passing wins.
func (s *Service) blockingGates(rows []mastery.AtomMastery) (map[string]*priority.GateSignal, error) {
	level := make(map[string]mastery.Level, len(rows))
	for _, r := range rows {
		level[r.AtomID] = r.Level
	}

	out := make(map[string]*priority.GateSignal)
	for i, req := range s.gates {
		p, err := mastery.EvaluateGate(req, rows)
		if err != nil {
			return nil, fmt.Errorf("gate %d: %w", i, err)
		}
		if p.Status == mastery.GatePassed || p.Status == mastery.GateFailed {
			continue
		}
		id := req.ID
		if id == "" {
			id = fmt.Sprintf("gate-%d", i+1)
		}
		for _, atom := range gateAtoms(req, rows) {
			if level[atom] == mastery.LevelMastered {
				continue
			}
			if cur, ok := out[atom]; ok && cur.PercentComplete >= p.PercentComplete {
				continue
			}
			out[atom] = &priority.GateSignal{GateID: id, PercentComplete: p.PercentComplete}
		}
	}
	return out, nil
}

// gateAtoms lists the atoms a requirement covers, children included. An
// empty filter covers every row.
func gateAtoms(req mastery.Requirement, rows []mastery.AtomMastery) []string {
	if req.Type == mastery.RequirementComposite {
		var out []string
		for _, c := range req.Children {
			out = append(out, gateAtoms(c, rows)...)
		}
		return out
	}
	if len(req.AtomIDs) > 0 {
		return req.AtomIDs
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.AtomID)
	}
	return out
}
