// Package session turns ranked practice candidates and a time budget into
// an ordered daily plan of work blocks.
package session

import "time"

// BlockType is the purpose of a work block.
type BlockType string

const (
	BlockGate     BlockType = "gate"
	BlockWeakness BlockType = "weakness"
	BlockReview   BlockType = "review"
	BlockBuild    BlockType = "build"
)

// blockOrder is the fixed precedence of block types in a plan.
var blockOrder = []BlockType{BlockGate, BlockWeakness, BlockReview, BlockBuild}

func (t BlockType) rank() int {
	for i, bt := range blockOrder {
		if bt == t {
			return i
		}
	}
	return len(blockOrder)
}

// Distribution is the share of the target minutes given to each block type.
type Distribution struct {
	Gate     float64 `json:"gate" validate:"gte=0,lte=1"`
	Weakness float64 `json:"weakness" validate:"gte=0,lte=1"`
	Review   float64 `json:"review" validate:"gte=0,lte=1"`
	Build    float64 `json:"build" validate:"gte=0,lte=1"`
}

func (d Distribution) share(t BlockType) float64 {
	switch t {
	case BlockGate:
		return d.Gate
	case BlockWeakness:
		return d.Weakness
	case BlockReview:
		return d.Review
	default:
		return d.Build
	}
}

// Config holds the planner's sizing rules.
type Config struct {
	MinBlockMinutes int          `json:"min_block_minutes" validate:"min=1"`
	MaxBlockMinutes int          `json:"max_block_minutes" validate:"gtefield=MinBlockMinutes"`
	Distribution    Distribution `json:"distribution"`
	MinutesPerAtom  int          `json:"minutes_per_atom" validate:"min=1"`
}

// DefaultConfig returns the standard planner settings.
func DefaultConfig() Config {
	return Config{
		MinBlockMinutes: 5,
		MaxBlockMinutes: 30,
		Distribution:    Distribution{Gate: 0.30, Weakness: 0.30, Review: 0.20, Build: 0.20},
		MinutesPerAtom:  5,
	}
}

// Block is one time-boxed unit of work.
type Block struct {
	Type    BlockType `json:"type"`
	Minutes int       `json:"minutes"`
	AtomIDs []string  `json:"atom_ids,omitempty"`
}

// SkippedAtom is a candidate the anti-grind guard refused.
type SkippedAtom struct {
	AtomID string `json:"atom_id"`
	Reason string `json:"reason"`
}

// Plan is the ordered set of blocks for the rest of the day.
type Plan struct {
	Date             time.Time     `json:"date"`
	TargetMinutes    int           `json:"target_minutes"`
	CompletedMinutes int           `json:"completed_minutes"`
	PlannedMinutes   int           `json:"planned_minutes"`
	Blocks           []Block       `json:"blocks"`
	Skipped          []SkippedAtom `json:"skipped,omitempty"`
}
