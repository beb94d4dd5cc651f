package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/abhisek/trainsched/internal/mastery"
	"github.com/abhisek/trainsched/internal/rating"
	"github.com/abhisek/trainsched/internal/spacedrep"
)

func sampleData(t *testing.T) Data {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r := rating.New(rating.ScopeAtom, "algebra.linear", now)
	r.Value = 532
	r.StreakType = rating.StreakWin
	r.CurrentStreak = 2

	due, err := spacedrep.Enqueue("algebra.linear", now.AddDate(0, 0, -1))
	require.NoError(t, err)
	later, err := spacedrep.Enqueue("geometry.area", now.AddDate(0, 0, 3))
	require.NoError(t, err)

	return Data{
		Ratings: []*rating.Rating{r},
		Mastery: []mastery.AtomMastery{{
			AtomID: "algebra.linear", Section: "quant", Level: mastery.LevelPracticing,
			TotalAttempts: 6, CorrectAttempts: 4, RecentAttempts: []bool{true, false, true}, AvgTime: 41.256,
		}},
		Reviews: []spacedrep.Item{due, later},
		Now:     now,
	}
}

func TestWriteRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleData(t)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetRatings, SheetMastery, SheetReviews}, f.GetSheetList())

	rows, err := f.GetRows(SheetRatings)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Scope", rows[0][0])
	assert.Equal(t, []string{"atom", "algebra.linear", "532", "350", "0", "500", "2 win", "2026-03-01 09:00"}, rows[1])

	rows, err = f.GetRows(SheetMastery)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "practicing", rows[1][2])
	assert.Equal(t, "0.67", rows[1][5])
	assert.Equal(t, "41.26", rows[1][6])

	rows, err = f.GetRows(SheetReviews)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "algebra.linear", rows[1][0])
	assert.NotEqual(t, string(spacedrep.ReviewNotDue), rows[1][1])
	assert.Equal(t, string(spacedrep.ReviewNotDue), rows[2][1])
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Data{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetReviews)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}

func TestWriteFile(t *testing.T) {
	path := t.TempDir() + "/state.xlsx"
	require.NoError(t, WriteFile(path, sampleData(t)))
	assert.FileExists(t, path)
}
