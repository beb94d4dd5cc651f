package timing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/trainsched/internal/apperr"
)

func TestRecordAbandonment_Inference(t *testing.T) {
	tests := []struct {
		elapsed   float64
		want      AbandonReason
		strategic bool
	}{
		{10, ReasonSkipped, false},
		{50, ReasonUnknown, false},
		{80, ReasonStrategic, true},
		{100, ReasonTimeExpired, true},
		{130, ReasonTimeExpired, true},
	}
	for _, tt := range tests {
		ev, err := RecordAbandonment("q", ProblemSolving, tt.elapsed, 100, "", t0)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ev.Reason, "elapsed %v", tt.elapsed)
		assert.True(t, ev.Inferred)
		assert.Equal(t, tt.strategic, ev.WasStrategicGuess, "elapsed %v", tt.elapsed)
		assert.InDelta(t, tt.elapsed, ev.PercentBudgetUsed, 1e-9)
	}
}

func TestRecordAbandonment_ExplicitReason(t *testing.T) {
	ev, err := RecordAbandonment("q", DataSufficiency, 90, 100, ReasonGaveUp, t0)
	require.NoError(t, err)
	assert.False(t, ev.Inferred)
	assert.False(t, ev.WasStrategicGuess, "giving up late is not a strategic guess")

	ev, err = RecordAbandonment("q", DataSufficiency, 5, 100, ReasonStrategic, t0)
	require.NoError(t, err)
	assert.True(t, ev.WasStrategicGuess)
}

func TestRecordAbandonment_Invalid(t *testing.T) {
	_, err := RecordAbandonment("q", ProblemSolving, -4, 100, "", t0)
	assert.True(t, apperr.IsInvalidInput(err))
	_, err = RecordAbandonment("q", ProblemSolving, math.NaN(), 100, "", t0)
	assert.True(t, apperr.IsInvalidInput(err))
	_, err = RecordAbandonment("q", ProblemSolving, 4, 0, "", t0)
	assert.True(t, apperr.IsInvalidInput(err))
	_, err = RecordAbandonment("q", ProblemSolving, 4, 100, "bored", t0)
	assert.True(t, apperr.IsInvalidInput(err))
}

func TestMinePatterns(t *testing.T) {
	mk := func(qt QuestionType, elapsed float64, reason AbandonReason) AbandonmentEvent {
		ev, err := RecordAbandonment("q", qt, elapsed, 100, reason, t0)
		require.NoError(t, err)
		return ev
	}
	events := []AbandonmentEvent{
		mk(ReadingComprehension, 10, ""),
		mk(CriticalReasoning, 20, ""),
		mk(ReadingComprehension, 5, ""),
		mk(ProblemSolving, 120, ReasonGaveUp),
		mk(DataSufficiency, 140, ReasonGaveUp),
		mk(ProblemSolving, 75, ""),
	}

	got := MinePatterns(events)
	require.Len(t, got, 2)

	assert.Equal(t, PatternEarlyAbandon, got[0].Type)
	assert.Equal(t, 3, got[0].Frequency)
	assert.Equal(t, []QuestionType{CriticalReasoning, ReadingComprehension}, got[0].QuestionTypes)

	assert.Equal(t, PatternLateStruggle, got[1].Type)
	assert.Equal(t, 2, got[1].Frequency)
	assert.Equal(t, []QuestionType{DataSufficiency, ProblemSolving}, got[1].QuestionTypes)
}

func TestMinePatterns_Strategic(t *testing.T) {
	var events []AbandonmentEvent
	for _, e := range []float64{72, 85, 110} {
		ev, err := RecordAbandonment("q", SentenceCorrection, e, 100, "", t0)
		require.NoError(t, err)
		events = append(events, ev)
	}
	got := MinePatterns(events)
	require.Len(t, got, 1)
	assert.Equal(t, PatternStrategic, got[0].Type)
	assert.Equal(t, 3, got[0].Frequency)
	assert.Equal(t, []QuestionType{SentenceCorrection}, got[0].QuestionTypes)
}

func TestMinePatterns_NeedsTwoOccurrences(t *testing.T) {
	ev, err := RecordAbandonment("q", Essay, 10, 1800, "", t0)
	require.NoError(t, err)
	assert.Empty(t, MinePatterns([]AbandonmentEvent{ev}))
}
