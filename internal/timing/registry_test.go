package timing

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/trainsched/internal/apperr"
)

func TestRegistry_Lifecycle(t *testing.T) {
	r := NewRegistry()
	b := budgetFor(t, ProblemSolving, 5)

	s, err := r.Start("q-1", b, t0)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, StateRunning, s.State)

	s, err = r.Pause(s.ID, t0.Add(sec(20)))
	require.NoError(t, err)
	assert.Equal(t, StatePaused, s.State)

	_, err = r.Resume(s.ID, t0.Add(sec(50)))
	require.NoError(t, err)

	res, err := r.Complete(s.ID, t0.Add(sec(200)))
	require.NoError(t, err)
	assert.Equal(t, 170.0, res.ElapsedSeconds)
	assert.Equal(t, 142, res.PercentUsed)
	assert.Equal(t, s.ID, res.SessionID)

	got, err := r.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, got.State)

	r.Remove(s.ID)
	_, err = r.Get(s.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestRegistry_UnknownID(t *testing.T) {
	r := NewRegistry()
	_, err := r.Pause("missing", t0)
	assert.True(t, apperr.IsNotFound(err))
	_, err = r.Complete("missing", t0)
	assert.True(t, apperr.IsNotFound(err))
	_, err = r.Check("missing", t0)
	assert.True(t, apperr.IsNotFound(err))
}

func TestRegistry_RejectsEmptyBudget(t *testing.T) {
	_, err := NewRegistry().Start("q", Budget{}, t0)
	assert.True(t, apperr.IsInvalidInput(err))
}

func TestRegistry_SessionsAreIsolated(t *testing.T) {
	r := NewRegistry()
	b := budgetFor(t, ProblemSolving, 5)
	a, err := r.Start("a", b, t0)
	require.NoError(t, err)
	c, err := r.Start("c", b, t0)
	require.NoError(t, err)

	_, err = r.Pause(a.ID, t0.Add(sec(5)))
	require.NoError(t, err)

	other, err := r.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, other.State)
	assert.Nil(t, other.PausedAt)
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	r := NewRegistry()
	s, err := r.Start("q", budgetFor(t, ProblemSolving, 5), t0)
	require.NoError(t, err)
	s.State = StateCompleted

	got, err := r.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, got.State)
}

func TestRegistry_RestoreRoundTrip(t *testing.T) {
	r := NewRegistry()
	b := budgetFor(t, DataInsights, 3)
	s, err := r.Start("q", b, t0)
	require.NoError(t, err)
	_, err = r.Pause(s.ID, t0.Add(sec(30)))
	require.NoError(t, err)

	next := NewRegistry()
	next.Restore(r.Sessions())
	_, err = next.Resume(s.ID, t0.Add(sec(90)))
	require.NoError(t, err)
	res, err := next.Complete(s.ID, t0.Add(sec(120)))
	require.NoError(t, err)
	assert.Equal(t, 60.0, res.ElapsedSeconds)
}

func TestRegistry_ConcurrentSessions(t *testing.T) {
	r := NewRegistry()
	b := budgetFor(t, ProblemSolving, 5)

	var wg sync.WaitGroup
	ids := make([]string, 32)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := r.Start(fmt.Sprintf("q-%d", i), b, t0)
			if err != nil {
				t.Error(err)
				return
			}
			ids[i] = s.ID
			_, _ = r.Pause(s.ID, t0.Add(sec(i)))
			_, _ = r.Resume(s.ID, t0.Add(sec(i+1)))
			_, _ = r.Check(s.ID, t0.Add(sec(60)))
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.Sessions(), len(ids))
	seen := make(map[string]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
