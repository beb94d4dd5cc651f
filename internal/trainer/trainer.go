// Package trainer runs the scheduling engine for one learner on top of the
// SQLite store: it records attempts, builds daily plans, keeps question
// timers and takes snapshots.
package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/abhisek/trainsched/internal/antigrind"
	"github.com/abhisek/trainsched/internal/config"
	"github.com/abhisek/trainsched/internal/logging"
	"github.com/abhisek/trainsched/internal/mastery"
	"github.com/abhisek/trainsched/internal/priority"
	"github.com/abhisek/trainsched/internal/rating"
	"github.com/abhisek/trainsched/internal/session"
	"github.com/abhisek/trainsched/internal/spacedrep"
	"github.com/abhisek/trainsched/internal/store"
	"github.com/abhisek/trainsched/internal/timing"
)

// RulesVersion versions the scoring and scheduling rules. Snapshots taken
// under a different major version are refused on restore.
const RulesVersion = "v1.0.0"

// LearnerKey is the global rating of the learner.
var LearnerKey = rating.Key{Scope: rating.ScopeGlobal, ID: "learner"}

// Service is the trainer for a single learner.
type Service struct {
	store   *store.Store
	cfg     config.Config
	log     *slog.Logger
	gates   []mastery.Requirement
	guard   *antigrind.Guard
	planner *session.Planner
	scorer  *priority.Scorer
	timers  *timing.Registry
}

// New creates a service and reloads timers left running by an earlier
// process. A nil logger logs nowhere.
func New(ctx context.Context, st *store.Store, cfg config.Config, gates []mastery.Requirement, log *slog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if log == nil {
		log = logging.Discard()
	}
	guard := antigrind.NewGuard(cfg.AntiGrind)
	s := &Service{
		store:   st,
		cfg:     cfg,
		log:     log,
		gates:   gates,
		guard:   guard,
		planner: session.NewPlanner(cfg.Planner, guard),
		scorer:  priority.NewScorer(cfg.Weights),
		timers:  timing.NewRegistry(),
	}

	sessions, err := st.Timers().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load timers: %w", err)
	}
	s.timers.Restore(sessions)
	if len(sessions) > 0 {
		log.Debug("restored timers", "count", len(sessions))
	}
	return s, nil
}

// Gates returns the configured gate requirements.
func (s *Service) Gates() []mastery.Requirement { return s.gates }

// LoadGates reads gate requirements from a JSON file. An empty path yields
// no gates.
func LoadGates(path string) ([]mastery.Requirement, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gates file: %w", err)
	}
	reqs, err := mastery.ParseRequirements(data)
	if err != nil {
		return nil, fmt.Errorf("parse gates file %s: %w", path, err)
	}
	return reqs, nil
}

func (s *Service) loadTracker(ctx context.Context) (*mastery.Tracker, error) {
	rows, err := s.store.Mastery().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load mastery: %w", err)
	}
	return mastery.NewTracker(rows), nil
}

func (s *Service) loadScheduler(ctx context.Context) (*spacedrep.Scheduler, error) {
	items, err := s.store.Reviews().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}
	return spacedrep.NewScheduler(items), nil
}

func (s *Service) loadBook(ctx context.Context) (*rating.Book, error) {
	rs, err := s.store.Ratings().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}
	return rating.NewBook(rs), nil
}

// today returns the attempts made since local midnight of now, excluding
// abandoned questions, folded into session counts.
func (s *Service) today(ctx context.Context, now time.Time) (*antigrind.SessionCounts, []store.AttemptEvent, error) {
	events, err := s.store.Events().RecentAttempts(ctx, store.QueryOpts{From: startOfDay(now)})
	if err != nil {
		return nil, nil, fmt.Errorf("load today's attempts: %w", err)
	}
	counts := antigrind.NewSessionCounts()
	for _, e := range events {
		if e.AbandonReason != "" {
			continue
		}
		counts.Record(e.AtomID, e.At)
	}
	return counts, events, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
