package store

import (
	"context"
	"time"

	"github.com/abhisek/trainsched/internal/mastery"
	"github.com/abhisek/trainsched/internal/rating"
	"github.com/abhisek/trainsched/internal/spacedrep"
	"github.com/abhisek/trainsched/internal/timing"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited), newest kept
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
	AtomID string    // only this atom when set
}

// AttemptEventData captures one answered or abandoned question. Abandoned
// questions carry an AbandonReason and never count as correct.
type AttemptEventData struct {
	AtomID        string
	QuestionID    string
	Section       string
	Correct       bool
	Guessed       bool
	QuestionType  string
	TimeSeconds   float64
	BudgetSeconds float64
	TimeCategory  string
	AbandonReason string
	Outcome       string
	XP            int
	SessionID     string
	At            time.Time
}

// AttemptEvent is a stored attempt with its global sequence number.
type AttemptEvent struct {
	Sequence int64
	AttemptEventData
}

// RatingRepo persists ratings.
type RatingRepo interface {
	Upsert(ctx context.Context, r *rating.Rating) error
	// Get returns apperr.ErrNotFound when the rating has never been saved.
	Get(ctx context.Context, key rating.Key) (*rating.Rating, error)
	List(ctx context.Context) ([]*rating.Rating, error)
}

// MasteryRepo persists per-atom mastery rows.
type MasteryRepo interface {
	Upsert(ctx context.Context, row mastery.AtomMastery) error
	List(ctx context.Context) ([]mastery.AtomMastery, error)
}

// ReviewRepo persists spaced-repetition items.
type ReviewRepo interface {
	Upsert(ctx context.Context, item spacedrep.Item) error
	List(ctx context.Context) ([]spacedrep.Item, error)
	// DueBy returns items whose due date is at or before asOf, suspended
	// ones included; callers filter with Item.IsDue.
	DueBy(ctx context.Context, asOf time.Time) ([]spacedrep.Item, error)
}

// TimerRepo persists question timers so they survive process restarts.
type TimerRepo interface {
	Save(ctx context.Context, s timing.Session) error
	List(ctx context.Context) ([]timing.Session, error)
	Delete(ctx context.Context, id string) error
}

// EventRepo provides append and query access to attempt events.
type EventRepo interface {
	// AppendAttempt records an attempt and returns its sequence number.
	AppendAttempt(ctx context.Context, data AttemptEventData) (int64, error)

	// RecentAttempts returns matching events, oldest first.
	RecentAttempts(ctx context.Context, opts QueryOpts) ([]AttemptEvent, error)

	// SectionShares returns each section's share of attempts since since.
	SectionShares(ctx context.Context, since time.Time) (map[string]float64, error)

	// LastSequence returns the most recent sequence number, 0 when none.
	LastSequence(ctx context.Context) (int64, error)
}

// SnapshotData captures the full learner state at a point in time.
type SnapshotData struct {
	Version      int                   `json:"version"`
	RulesVersion string                `json:"rules_version"`
	Ratings      []*rating.Rating      `json:"ratings,omitempty"`
	Mastery      []mastery.AtomMastery `json:"mastery,omitempty"`
	Reviews      []spacedrep.Item      `json:"reviews,omitempty"`
}

// Snapshot represents a point-in-time capture of learner state.
type Snapshot struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	Data      SnapshotData
}

// SnapshotRepo manages learner state snapshots.
type SnapshotRepo interface {
	// Save stores a new snapshot.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the most recent snapshot, or nil if none exist.
	Latest(ctx context.Context) (*Snapshot, error)

	// Prune deletes all but the N most recent snapshots.
	Prune(ctx context.Context, keep int) error
}
