package session

import (
	"math"
	"sort"
	"time"

	"github.com/abhisek/trainsched/internal/antigrind"
	"github.com/abhisek/trainsched/internal/apperr"
	"github.com/abhisek/trainsched/internal/priority"
)

// Input is everything the planner needs for one call.
type Input struct {
	Now              time.Time
	TargetMinutes    int
	CompletedMinutes int
	// Priorities is the ranked candidate list, highest first.
	Priorities []priority.Item
	// Counts are today's per-atom attempts; nil means none yet.
	Counts *antigrind.SessionCounts
	// LastAttempts optionally supplies the most recent attempt per atom.
	LastAttempts map[string]time.Time
}

// Planner builds daily plans.
type Planner struct {
	cfg   Config
	guard *antigrind.Guard
}

// NewPlanner creates a planner. A nil guard never denies an atom.
func NewPlanner(cfg Config, guard *antigrind.Guard) *Planner {
	return &Planner{cfg: cfg, guard: guard}
}

// GenerateDailyPlan allocates the remaining minutes across gate, weakness,
// review and build blocks, in that order.
func GenerateDailyPlan(in Input) (*Plan, error) {
	return NewPlanner(DefaultConfig(), antigrind.NewGuard(antigrind.DefaultConfig())).Build(in)
}

// Build creates a plan for in.
func (p *Planner) Build(in Input) (*Plan, error) {
	if in.TargetMinutes < 0 {
		return nil, apperr.Invalid("targetMinutes", "must be >= 0, got %d", in.TargetMinutes)
	}
	if in.CompletedMinutes < 0 {
		return nil, apperr.Invalid("completedMinutes", "must be >= 0, got %d", in.CompletedMinutes)
	}
	if p.cfg.MinBlockMinutes <= 0 || p.cfg.MaxBlockMinutes < p.cfg.MinBlockMinutes {
		return nil, apperr.Invalid("config", "block bounds [%d,%d] are not usable", p.cfg.MinBlockMinutes, p.cfg.MaxBlockMinutes)
	}

	plan := &Plan{
		Date:             in.Now,
		TargetMinutes:    in.TargetMinutes,
		CompletedMinutes: in.CompletedMinutes,
	}
	remaining := in.TargetMinutes - in.CompletedMinutes

	hasGates, hasWeak := false, false
	for _, it := range in.Priorities {
		hasGates = hasGates || it.HasFactor(priority.FactorBlockingGate)
		hasWeak = hasWeak || it.HasFactor(priority.FactorWeaknessCluster)
	}
	dist := redistribute(p.cfg.Distribution, hasGates, hasWeak)

	var blocks []Block
	for _, bt := range blockOrder {
		share := dist.share(bt)
		if share <= 0 {
			continue
		}
		m := int(math.Round(float64(in.TargetMinutes) * share))
		m = max(p.cfg.MinBlockMinutes, min(p.cfg.MaxBlockMinutes, m))
		m = min(m, remaining)
		if m < p.cfg.MinBlockMinutes {
			continue
		}
		blocks = append(blocks, Block{Type: bt, Minutes: m})
		remaining -= m
	}
	for remaining >= p.cfg.MinBlockMinutes {
		m := min(p.cfg.MaxBlockMinutes, remaining)
		blocks = append(blocks, Block{Type: BlockBuild, Minutes: m})
		remaining -= m
	}

	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Type.rank() < blocks[j].Type.rank() })
	plan.Skipped = p.assignAtoms(blocks, in)
	for _, b := range blocks {
		plan.PlannedMinutes += b.Minutes
	}
	plan.Blocks = blocks
	return plan, nil
}

// redistribute moves the shares of empty categories: the gate share goes
// to build; the weakness share is split between review and build.
func redistribute(d Distribution, hasGates, hasWeak bool) Distribution {
	if !hasGates {
		d.Build += d.Gate
		d.Gate = 0
	}
	if !hasWeak {
		d.Review += d.Weakness / 2
		d.Build += d.Weakness / 2
		d.Weakness = 0
	}
	return d
}

// blockFactor is the priority factor that qualifies an atom for a block.
var blockFactor = map[BlockType]priority.FactorType{
	BlockGate:     priority.FactorBlockingGate,
	BlockWeakness: priority.FactorWeaknessCluster,
	BlockReview:   priority.FactorSpacedRepetition,
}

// assignAtoms fills blocks from the priority list in rank order. Each atom
// lands in at most one block; build blocks take whatever is left.
func (p *Planner) assignAtoms(blocks []Block, in Input) []SkippedAtom {
	var skipped []SkippedAtom
	used := make(map[string]bool)
	for _, it := range in.Priorities {
		if p.guard == nil {
			break
		}
		var last *time.Time
		if t, ok := in.LastAttempts[it.AtomID]; ok {
			last = &t
		}
		if d := p.guard.CanPracticeAtom(it.AtomID, in.Counts, last, in.Now); !d.Allowed {
			used[it.AtomID] = true
			skipped = append(skipped, SkippedAtom{AtomID: it.AtomID, Reason: string(d.Reason)})
		}
	}

	for i := range blocks {
		b := &blocks[i]
		want := max(1, b.Minutes/max(1, p.cfg.MinutesPerAtom))
		factor, specific := blockFactor[b.Type]
		for _, it := range in.Priorities {
			if len(b.AtomIDs) >= want {
				break
			}
			if used[it.AtomID] || (specific && !it.HasFactor(factor)) {
				continue
			}
			b.AtomIDs = append(b.AtomIDs, it.AtomID)
			used[it.AtomID] = true
		}
	}
	return skipped
}
