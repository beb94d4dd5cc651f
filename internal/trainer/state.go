package trainer

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/trainsched/internal/antigrind"
	"github.com/abhisek/trainsched/internal/apperr"
	"github.com/abhisek/trainsched/internal/mastery"
	"github.com/abhisek/trainsched/internal/rating"
	"github.com/abhisek/trainsched/internal/spacedrep"
	"github.com/abhisek/trainsched/internal/store"
	"github.com/abhisek/trainsched/internal/timing"
)

// statsWindow is how many recent attempts feed drift and pattern analysis.
const statsWindow = 200

// DueReviews returns review items due at now, earliest first.
func (s *Service) DueReviews(ctx context.Context, now time.Time) ([]spacedrep.Item, error) {
	items, err := s.store.Reviews().DueBy(ctx, now)
	if err != nil {
		return nil, err
	}
	return spacedrep.GetItemsDue(items, now), nil
}

// GateProgress evaluates every configured gate against stored mastery.
func (s *Service) GateProgress(ctx context.Context) ([]mastery.Progress, error) {
	rows, err := s.store.Mastery().List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]mastery.Progress, 0, len(s.gates))
	for i, req := range s.gates {
		p, err := mastery.EvaluateGate(req, rows)
		if err != nil {
			return nil, fmt.Errorf("gate %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Stats summarises the learner's state.
type Stats struct {
	Learner *rating.Rating
	Band    *rating.Band
	// RecentWinRate is the learner's share of wins over the rating history.
	RecentWinRate float64
	Ratings       []*rating.Rating
	Levels        map[mastery.Level]int
	Attempts      int
	Accuracy      float64
	XPToday       int
	// Variety is today's 0-100 spread of answered atoms.
	Variety    int
	DueReviews int
	Drift      timing.Drift
	Patterns   []timing.Pattern
}

// Stats collects ratings, mastery levels and pacing analysis.
func (s *Service) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	ratings, err := s.store.Ratings().List(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.Mastery().List(ctx)
	if err != nil {
		return nil, err
	}
	due, err := s.DueReviews(ctx, now)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.Events().RecentAttempts(ctx, store.QueryOpts{Limit: statsWindow})
	if err != nil {
		return nil, err
	}

	book := rating.NewBook(ratings)
	st := &Stats{
		Ratings:    book.All(),
		Levels:     make(map[mastery.Level]int),
		DueReviews: len(due),
	}
	if r, err := book.Get(LearnerKey); err == nil {
		st.Learner = r
		st.RecentWinRate = r.RecentWinRate()
		band, err := rating.TargetBand(r, s.cfg.TargetWinRate)
		if err != nil {
			return nil, err
		}
		st.Band = &band
	}

	correct := 0
	for _, r := range rows {
		st.Levels[r.Level]++
		st.Attempts += r.TotalAttempts
		correct += r.CorrectAttempts
	}
	if st.Attempts > 0 {
		st.Accuracy = float64(correct) / float64(st.Attempts)
	}

	dayStart := startOfDay(now)
	var (
		results   []timing.Result
		abandoned []timing.AbandonmentEvent
		answered  []string
	)
	for _, e := range recent {
		if !e.At.Before(dayStart) {
			st.XPToday += e.XP
			if e.AbandonReason == "" {
				answered = append(answered, e.AtomID)
			}
		}
		if e.BudgetSeconds <= 0 {
			continue
		}
		if e.AbandonReason != "" {
			ev, err := timing.RecordAbandonment(e.QuestionID, timing.QuestionType(e.QuestionType),
				e.TimeSeconds, e.BudgetSeconds, timing.AbandonReason(e.AbandonReason), e.At)
			if err != nil {
				s.log.WarnContext(ctx, "skipping abandonment event", "sequence", e.Sequence, "error", err)
				continue
			}
			abandoned = append(abandoned, ev)
			continue
		}
		r, err := timing.NewResult(e.TimeSeconds, e.BudgetSeconds)
		if err != nil {
			continue
		}
		results = append(results, r)
	}
	st.Drift, err = timing.AnalyzeDrift(results, 0)
	if err != nil {
		return nil, err
	}
	st.Patterns = timing.MinePatterns(abandoned)
	st.Variety = antigrind.VarietyScore(answered)
	return st, nil
}

// Snapshot captures ratings, mastery and reviews and prunes old snapshots.
func (s *Service) Snapshot(ctx context.Context, now time.Time) (*store.Snapshot, error) {
	ratings, err := s.store.Ratings().List(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.Mastery().List(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.store.Reviews().List(ctx)
	if err != nil {
		return nil, err
	}
	seq, err := s.store.Events().LastSequence(ctx)
	if err != nil {
		return nil, err
	}

	snap := &store.Snapshot{
		Sequence:  seq,
		Timestamp: now,
		Data: store.SnapshotData{
			Version:      store.SnapshotVersion,
			RulesVersion: RulesVersion,
			Ratings:      ratings,
			Mastery:      rows,
			Reviews:      items,
		},
	}
	repo := s.store.SnapshotRepo()
	if err := repo.Save(ctx, snap); err != nil {
		return nil, err
	}
	if err := repo.Prune(ctx, s.cfg.SnapshotKeep); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "snapshot saved", "sequence", seq, "ratings", len(ratings), "atoms", len(rows), "reviews", len(items))
	return snap, nil
}

// RestoreSnapshot replaces ratings, mastery and reviews with the latest
// snapshot's rows in one transaction. Rows created after the snapshot are
// removed. Snapshots from an incompatible rules version are refused.
func (s *Service) RestoreSnapshot(ctx context.Context) (*store.Snapshot, error) {
	snap, err := s.store.SnapshotRepo().Latest(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, apperr.NotFound("snapshot", "latest")
	}
	if err := snap.Data.CheckRules(RulesVersion); err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx *store.Tx) error {
		if err := tx.ClearLearnerState(ctx); err != nil {
			return err
		}
		for _, r := range snap.Data.Ratings {
			if err := tx.Ratings().Upsert(ctx, r); err != nil {
				return err
			}
		}
		for _, row := range snap.Data.Mastery {
			if err := tx.Mastery().Upsert(ctx, row); err != nil {
				return err
			}
		}
		for _, it := range snap.Data.Reviews {
			if err := tx.Reviews().Upsert(ctx, it); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("restore snapshot %d: %w", snap.ID, err)
	}
	s.log.InfoContext(ctx, "snapshot restored", "id", snap.ID, "sequence", snap.Sequence)
	return snap, nil
}

// ExportData gathers the rows written by the spreadsheet export.
func (s *Service) ExportData(ctx context.Context) ([]*rating.Rating, []mastery.AtomMastery, []spacedrep.Item, error) {
	ratings, err := s.store.Ratings().List(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	rows, err := s.store.Mastery().List(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	items, err := s.store.Reviews().List(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return ratings, rows, items, nil
}
