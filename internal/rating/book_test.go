package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/trainsched/internal/apperr"
)

func TestBook_EnsureCreatesOnce(t *testing.T) {
	b := NewBook(nil)
	key := Key{Scope: ScopeSection, ID: "quant"}

	r1 := b.Ensure(key, t0)
	r1.Value = 610
	r2 := b.Ensure(key, t0)

	assert.Same(t, r1, r2)
	assert.Equal(t, 610, r2.Value)
}

func TestBook_ApplyUnknownScope(t *testing.T) {
	b := NewBook(nil)
	_, err := b.Apply(Key{Scope: ScopeTopic, ID: "geometry"}, Outcome{OpponentValue: 500, WasCorrect: true})
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestBook_LoadAndList(t *testing.T) {
	b := NewBook([]*Rating{
		New(ScopeAtom, "b", t0),
		New(ScopeAtom, "a", t0),
		New(ScopeGlobal, "me", t0),
		nil,
	})
	all := b.All()
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ScopeKey)
	assert.Equal(t, "b", all[1].ScopeKey)
	assert.Equal(t, ScopeGlobal, all[2].Scope)
}

func TestTargetBand(t *testing.T) {
	r := New(ScopeAtom, "a", t0)

	even, err := TargetBand(r, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 500, even.Target)

	easier, err := TargetBand(r, 0.7)
	require.NoError(t, err)
	assert.Less(t, easier.Target, 500)
	assert.InDelta(t, 0.7, ExpectedScore(r.Value, easier.Target), 0.01)
	assert.True(t, easier.Contains(easier.Target))
	assert.Equal(t, r.Deviation/2, easier.Target-easier.Min)

	_, err = TargetBand(r, 1)
	assert.True(t, apperr.IsInvalidInput(err))
}
