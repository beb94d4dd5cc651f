package trainer

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/trainsched/internal/antigrind"
	"github.com/abhisek/trainsched/internal/apperr"
	"github.com/abhisek/trainsched/internal/config"
	"github.com/abhisek/trainsched/internal/mastery"
	"github.com/abhisek/trainsched/internal/outcome"
	"github.com/abhisek/trainsched/internal/rating"
	"github.com/abhisek/trainsched/internal/session"
	"github.com/abhisek/trainsched/internal/store"
	"github.com/abhisek/trainsched/internal/timing"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	st, err := store.Open(fmt.Sprintf("file:trainer_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newService(t *testing.T, st *store.Store, mutate func(*config.Config), gates ...mastery.Requirement) *Service {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := New(context.Background(), st, cfg, gates, nil)
	require.NoError(t, err)
	return svc
}

func attempt(atom string, correct bool, elapsed float64, at time.Time) AttemptInput {
	return AttemptInput{
		AtomID:         atom,
		Section:        "quant",
		QuestionType:   timing.ProblemSolving,
		Correct:        correct,
		ElapsedSeconds: elapsed,
		At:             at,
	}
}

func TestRecordAttemptCorrect(t *testing.T) {
	st := openStore(t)
	svc := newService(t, st, nil)
	ctx := context.Background()

	rep, err := svc.RecordAttempt(ctx, attempt("a", true, 60, t0))
	require.NoError(t, err)

	assert.Equal(t, int64(1), rep.Sequence)
	assert.Equal(t, timing.CategoryFast, rep.Timing.Category)
	assert.InDelta(t, 120, rep.Timing.BudgetSeconds, 1e-9)
	assert.Equal(t, outcome.CleanWin, rep.Outcome.Category)
	assert.Equal(t, 20, rep.XP.Base)
	assert.InDelta(t, 1.05, rep.StreakBonus, 1e-9)
	assert.Equal(t, 21, rep.XP.XP)
	assert.True(t, rep.Guard.Allowed)
	assert.Equal(t, 500, rep.Rating.OldValue)
	assert.Equal(t, 520, rep.Rating.NewValue)
	require.NotNil(t, rep.Transition)
	assert.Equal(t, mastery.LevelLearning, rep.Transition.To)
	assert.Nil(t, rep.Review, "correct answers on unseen atoms are not queued")

	ratings, err := st.Ratings().List(ctx)
	require.NoError(t, err)
	assert.Len(t, ratings, 4, "atom, question, learner and section")

	q, err := st.Ratings().Get(ctx, rating.Key{Scope: rating.ScopeQuestion, ID: "a"})
	require.NoError(t, err)
	assert.Equal(t, 480, q.Value)

	rows, err := st.Mastery().List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "quant", rows[0].Section)
	assert.Equal(t, 1, rows[0].TotalAttempts)
}

func TestRecordAttemptIncorrectQueuesReview(t *testing.T) {
	st := openStore(t)
	svc := newService(t, st, nil)
	ctx := context.Background()

	rep, err := svc.RecordAttempt(ctx, attempt("a", false, 100, t0))
	require.NoError(t, err)
	assert.Equal(t, outcome.ExpectedLoss, rep.Outcome.Category)
	assert.Equal(t, outcome.BaseXP, rep.XP.Base)
	assert.InDelta(t, antigrind.IncorrectXPShare, rep.XP.Multiplier, 1e-9)
	assert.Equal(t, 2, rep.XP.XP)
	require.NotNil(t, rep.Review)
	assert.Equal(t, 1, rep.Review.Lapses)

	due, err := svc.DueReviews(ctx, t0)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = svc.DueReviews(ctx, t0.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "a", due[0].ItemID)
}

func TestRecordAttemptRejectsBadInput(t *testing.T) {
	svc := newService(t, openStore(t), nil)
	ctx := context.Background()

	_, err := svc.RecordAttempt(ctx, attempt("", true, 60, t0))
	assert.True(t, apperr.IsInvalidInput(err))

	in := attempt("a", true, 60, t0)
	in.QuestionType = "haiku"
	_, err = svc.RecordAttempt(ctx, in)
	assert.True(t, apperr.IsInvalidInput(err))

	_, err = svc.RecordAttempt(ctx, attempt("a", true, -1, t0))
	assert.True(t, apperr.IsInvalidInput(err))

	_, err = svc.RecordAttempt(ctx, AttemptInput{AtomID: "a", TimerID: "missing", At: t0})
	assert.True(t, apperr.IsNotFound(err))
}

func TestRecordAttemptAntiGrind(t *testing.T) {
	svc := newService(t, openStore(t), nil)
	ctx := context.Background()

	var reps []*AttemptReport
	for i := 0; i < 6; i++ {
		rep, err := svc.RecordAttempt(ctx, attempt("a", true, 60, t0.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
		reps = append(reps, rep)
	}

	for i := 0; i < 3; i++ {
		assert.False(t, reps[i].XP.Diminished, "attempt %d", i+1)
	}
	assert.InDelta(t, 1.0, reps[3].XP.Multiplier, 1e-9)
	assert.InDelta(t, 0.8, reps[4].XP.Multiplier, 1e-9)
	assert.True(t, reps[4].XP.Diminished)
	assert.True(t, reps[4].Guard.Allowed)

	assert.False(t, reps[5].Guard.Allowed)
	assert.Equal(t, antigrind.DenyCooldown, reps[5].Guard.Reason)
}

func TestRecordAttemptStreakBonus(t *testing.T) {
	svc := newService(t, openStore(t), nil)
	ctx := context.Background()

	steps := []struct {
		atom      string
		correct   bool
		wantBonus float64
	}{
		{"a", true, 1.05},
		{"a", true, 1.10},
		{"a", true, 1.15},
		{"a", true, 1.0}, // one atom out of four attempts
		{"b", false, 1.0},
		{"c", true, 1.05}, // streak restarts after a loss
	}
	for i, step := range steps {
		rep, err := svc.RecordAttempt(ctx, attempt(step.atom, step.correct, 60, t0.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
		assert.InDelta(t, step.wantBonus, rep.StreakBonus, 1e-9, "attempt %d", i+1)
		want := int(math.Round(float64(rep.XP.Base) * rep.XP.Multiplier * rep.StreakBonus))
		assert.Equal(t, want, rep.XP.XP, "attempt %d", i+1)
		if !step.correct {
			assert.Equal(t, 2, rep.XP.XP)
		}
	}
}

func TestRecordAttemptKeepsTimerWhenWriteFails(t *testing.T) {
	st := openStore(t)
	svc := newService(t, st, nil)
	ctx := context.Background()

	sess, err := svc.StartTimer(ctx, "q-9", timing.ProblemSolving, t0)
	require.NoError(t, err)

	_, err = st.DB().Exec("ALTER TABLE timer_sessions RENAME TO timer_sessions_off")
	require.NoError(t, err)
	_, err = svc.RecordAttempt(ctx, AttemptInput{AtomID: "a", Correct: true, TimerID: sess.ID, At: t0.Add(50 * time.Second)})
	require.Error(t, err)

	require.Len(t, svc.Timers(), 1, "timer is kept until the attempt is stored")
	events, err := st.Events().RecentAttempts(ctx, store.QueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, events)
	ratings, err := st.Ratings().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ratings)
	rows, err := st.Mastery().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = st.DB().Exec("ALTER TABLE timer_sessions_off RENAME TO timer_sessions")
	require.NoError(t, err)
	rep, err := svc.RecordAttempt(ctx, AttemptInput{AtomID: "a", Correct: true, TimerID: sess.ID, At: t0.Add(90 * time.Second)})
	require.NoError(t, err)
	assert.InDelta(t, 50, rep.Timing.ElapsedSeconds, 1e-9, "retry keeps the first finish time")
	assert.Equal(t, int64(1), rep.Sequence)
	assert.Empty(t, svc.Timers())
	stored, err := st.Timers().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestTimerFlow(t *testing.T) {
	st := openStore(t)
	svc := newService(t, st, nil)
	ctx := context.Background()

	sess, err := svc.StartTimer(ctx, "q-17", timing.ProblemSolving, t0)
	require.NoError(t, err)
	assert.Equal(t, timing.StateRunning, sess.State)
	assert.Equal(t, 120, sess.Budget.AdjustedSeconds)

	_, err = svc.PauseTimer(ctx, sess.ID, t0.Add(10*time.Second))
	require.NoError(t, err)

	_, err = svc.CompleteTimer(ctx, sess.ID, t0.Add(20*time.Second))
	assert.True(t, timing.IsInvalidTransition(err), "paused timers must be resumed first")

	_, err = svc.ResumeTimer(ctx, sess.ID, t0.Add(30*time.Second))
	require.NoError(t, err)

	cr, err := svc.CheckTimer(ctx, sess.ID, t0.Add(130*time.Second))
	require.NoError(t, err)
	require.Len(t, cr.Warnings, 1)
	assert.Equal(t, timing.WarningApproaching, cr.Warnings[0].Type)

	rep, err := svc.RecordAttempt(ctx, AttemptInput{AtomID: "a", Correct: true, TimerID: sess.ID, At: t0.Add(140 * time.Second)})
	require.NoError(t, err)
	assert.InDelta(t, 120, rep.Timing.ElapsedSeconds, 1e-9)
	assert.Equal(t, timing.CategorySlow, rep.Timing.Category)
	assert.Equal(t, "q-17", rep.Timing.QuestionID)
	assert.Equal(t, timing.ProblemSolving, rep.Timing.QuestionType)

	assert.Empty(t, svc.Timers())
	stored, err := st.Timers().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestTimersSurviveRestart(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	first := newService(t, st, nil)
	sess, err := first.StartTimer(ctx, "q1", timing.SentenceCorrection, t0)
	require.NoError(t, err)
	_, err = first.PauseTimer(ctx, sess.ID, t0.Add(15*time.Second))
	require.NoError(t, err)

	second := newService(t, st, nil)
	timers := second.Timers()
	require.Len(t, timers, 1)
	assert.Equal(t, sess.ID, timers[0].ID)
	assert.Equal(t, timing.StatePaused, timers[0].State)
	assert.Equal(t, 15*time.Second, timers[0].Elapsed(t0.Add(time.Hour)))
}

func TestCompleteTimerStrictExpires(t *testing.T) {
	svc := newService(t, openStore(t), func(c *config.Config) { c.LearnerLevel = 7 })
	ctx := context.Background()

	sess, err := svc.StartTimer(ctx, "q1", timing.ProblemSolving, t0)
	require.NoError(t, err)
	assert.True(t, sess.Budget.StrictEnforcement)

	res, err := svc.CompleteTimer(ctx, sess.ID, t0.Add(150*time.Second))
	require.NoError(t, err)
	assert.True(t, res.WasExpired)
	assert.InDelta(t, 120, res.ElapsedSeconds, 1e-9)
	assert.Empty(t, svc.Timers())
}

func TestAbandonQuestion(t *testing.T) {
	st := openStore(t)
	svc := newService(t, st, nil)
	ctx := context.Background()

	sess, err := svc.StartTimer(ctx, "q1", timing.ProblemSolving, t0)
	require.NoError(t, err)

	ev, err := svc.AbandonQuestion(ctx, AbandonInput{AtomID: "a", TimerID: sess.ID, At: t0.Add(12 * time.Second)})
	require.NoError(t, err)
	assert.True(t, ev.Inferred)
	assert.Equal(t, timing.ReasonSkipped, ev.Reason)
	assert.InDelta(t, 10, ev.PercentBudgetUsed, 1e-9)
	assert.Empty(t, svc.Timers())

	events, err := st.Events().RecentAttempts(ctx, store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "abandoned", events[0].Outcome)
	assert.Equal(t, string(timing.ReasonSkipped), events[0].AbandonReason)

	rows, err := st.Mastery().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows, "abandoning does not count as an attempt")
}

func TestBuildPlanPrioritisesGateAtoms(t *testing.T) {
	gate := mastery.Requirement{
		ID:          "algebra-unlock",
		Type:        mastery.RequirementAccuracy,
		Threshold:   0.85,
		AtomIDs:     []string{"a", "b"},
		MinAttempts: 5,
	}
	svc := newService(t, openStore(t), nil, gate)
	ctx := context.Background()

	_, err := svc.RecordAttempt(ctx, attempt("a", true, 60, t0))
	require.NoError(t, err)
	_, err = svc.RecordAttempt(ctx, attempt("c", true, 60, t0.Add(time.Minute)))
	require.NoError(t, err)

	plan, items, err := svc.BuildPlan(ctx, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 60, plan.TargetMinutes)
	assert.Equal(t, 2, plan.CompletedMinutes)

	require.Len(t, items, 3)
	assert.True(t, items[0].HasFactor("blocking-gate"))
	assert.True(t, items[1].HasFactor("blocking-gate"))
	assert.Equal(t, "c", items[2].AtomID)

	require.NotEmpty(t, plan.Blocks)
	assert.Equal(t, session.BlockGate, plan.Blocks[0].Type)
	assert.ElementsMatch(t, []string{"a", "b"}, plan.Blocks[0].AtomIDs)
	assert.LessOrEqual(t, plan.PlannedMinutes, 58)
}

func TestGateProgress(t *testing.T) {
	gate := mastery.Requirement{ID: "volume", Type: mastery.RequirementVolume, Threshold: 4, AtomIDs: []string{"a"}}
	svc := newService(t, openStore(t), nil, gate)
	ctx := context.Background()

	progress, err := svc.GateProgress(ctx)
	require.NoError(t, err)
	require.Len(t, progress, 1)
	assert.Equal(t, mastery.GateLocked, progress[0].Status)

	for i := 0; i < 2; i++ {
		_, err := svc.RecordAttempt(ctx, attempt("a", true, 60, t0.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	progress, err = svc.GateProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, mastery.GateInProgress, progress[0].Status)
	assert.Equal(t, 50, progress[0].PercentComplete)
}

func TestStats(t *testing.T) {
	svc := newService(t, openStore(t), nil)
	ctx := context.Background()

	for i, ok := range []bool{true, true, false} {
		_, err := svc.RecordAttempt(ctx, attempt(fmt.Sprintf("atom-%d", i), ok, 60, t0.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	st, err := svc.Stats(ctx, t0.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, st.Learner)
	require.NotNil(t, st.Band)
	assert.True(t, st.Band.Contains(st.Band.Target))
	assert.Equal(t, 3, st.Levels[mastery.LevelLearning])
	assert.Equal(t, 3, st.Attempts)
	assert.InDelta(t, 2.0/3, st.Accuracy, 1e-9)
	assert.Equal(t, 21+22+2, st.XPToday)
	assert.Equal(t, 100, st.Variety)
	assert.InDelta(t, 2.0/3, st.RecentWinRate, 1e-9)
	assert.False(t, st.Drift.SufficientData)

	require.Len(t, st.Ratings, 8)
	for i := 1; i < len(st.Ratings); i++ {
		prev, cur := st.Ratings[i-1], st.Ratings[i]
		assert.True(t, prev.Scope < cur.Scope || (prev.Scope == cur.Scope && prev.ScopeKey < cur.ScopeKey),
			"ratings ordered by scope then key at %d", i)
	}
}

func TestStatsVariety(t *testing.T) {
	svc := newService(t, openStore(t), nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := svc.RecordAttempt(ctx, attempt("a", true, 60, t0.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	_, err := svc.AbandonQuestion(ctx, AbandonInput{AtomID: "b", QuestionType: timing.ProblemSolving, ElapsedSeconds: 10, At: t0.Add(5 * time.Minute)})
	require.NoError(t, err)

	st, err := svc.Stats(ctx, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 50, st.Variety, "abandoned questions do not add variety")

	st, err = svc.Stats(ctx, t0.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, st.Variety, "variety resets each day")
}

func TestSnapshotAndRestore(t *testing.T) {
	st := openStore(t)
	svc := newService(t, st, nil)
	ctx := context.Background()

	_, err := svc.RestoreSnapshot(ctx)
	assert.True(t, apperr.IsNotFound(err))

	_, err = svc.RecordAttempt(ctx, attempt("a", false, 60, t0))
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Sequence)
	assert.Equal(t, RulesVersion, snap.Data.RulesVersion)
	assert.Len(t, snap.Data.Mastery, 1)
	assert.Len(t, snap.Data.Reviews, 1)

	_, err = st.DB().Exec("DELETE FROM atom_mastery")
	require.NoError(t, err)

	restored, err := svc.RestoreSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, restored.ID)
	rows, err := st.Mastery().List(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRestoreSnapshotDropsLaterRows(t *testing.T) {
	st := openStore(t)
	svc := newService(t, st, nil)
	ctx := context.Background()

	_, err := svc.RecordAttempt(ctx, attempt("a", true, 60, t0))
	require.NoError(t, err)
	snap, err := svc.Snapshot(ctx, t0.Add(time.Minute))
	require.NoError(t, err)

	_, err = svc.RecordAttempt(ctx, attempt("b", false, 60, t0.Add(2*time.Minute)))
	require.NoError(t, err)
	_, err = svc.RecordAttempt(ctx, attempt("a", false, 60, t0.Add(3*time.Minute)))
	require.NoError(t, err)

	_, err = svc.RestoreSnapshot(ctx)
	require.NoError(t, err)

	rows, err := st.Mastery().List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].AtomID)
	assert.Equal(t, 1, rows[0].TotalAttempts)
	assert.Equal(t, 1, rows[0].CorrectAttempts)

	items, err := st.Reviews().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	ratings, err := st.Ratings().List(ctx)
	require.NoError(t, err)
	require.Len(t, ratings, len(snap.Data.Ratings))
	for i, r := range ratings {
		assert.Equal(t, snap.Data.Ratings[i].Key(), r.Key())
		assert.Equal(t, snap.Data.Ratings[i].Value, r.Value)
	}
	_, err = st.Ratings().Get(ctx, rating.Key{Scope: rating.ScopeAtom, ID: "b"})
	assert.True(t, apperr.IsNotFound(err))
}

func TestRestoreRefusesOtherMajor(t *testing.T) {
	st := openStore(t)
	svc := newService(t, st, nil)
	ctx := context.Background()

	require.NoError(t, st.SnapshotRepo().Save(ctx, &store.Snapshot{
		Timestamp: t0,
		Data:      store.SnapshotData{RulesVersion: "v2.0.0"},
	}))
	_, err := svc.RestoreSnapshot(ctx)
	assert.ErrorIs(t, err, store.ErrIncompatibleSnapshot)
}

func TestLoadGates(t *testing.T) {
	reqs, err := LoadGates("")
	require.NoError(t, err)
	assert.Nil(t, reqs)

	path := filepath.Join(t.TempDir(), "gates.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"v","type":"volume","threshold":10}]`), 0o600))
	reqs, err = LoadGates(path)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, mastery.RequirementVolume, reqs[0].Type)

	require.NoError(t, os.WriteFile(path, []byte(`[{"type":"volume","threshold":10,"children":[]}]`), 0o600))
	_, err = LoadGates(path)
	assert.Error(t, err)
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LearnerLevel = 0
	_, err := New(context.Background(), openStore(t), cfg, nil, nil)
	assert.True(t, apperr.IsInvalidInput(err))
}
