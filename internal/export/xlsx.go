// Package export writes learner state to an Excel workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/abhisek/trainsched/internal/mastery"
	"github.com/abhisek/trainsched/internal/rating"
	"github.com/abhisek/trainsched/internal/spacedrep"
)

// Sheet names.
const (
	SheetRatings = "Ratings"
	SheetMastery = "Mastery"
	SheetReviews = "Reviews"
)

const dateLayout = "2006-01-02 15:04"

// Data is what goes into the workbook.
type Data struct {
	Ratings []*rating.Rating
	Mastery []mastery.AtomMastery
	Reviews []spacedrep.Item
	// Now decides each review's displayed status.
	Now time.Time
}

type sheet struct {
	name    string
	headers []string
	rows    [][]any
}

// Workbook builds the workbook in memory. The caller closes it.
func Workbook(d Data) (*excelize.File, error) {
	f := excelize.NewFile()
	sheets := []sheet{
		{SheetRatings, []string{"Scope", "Key", "Rating", "Deviation", "Games", "Peak", "Streak", "Updated"}, ratingRows(d.Ratings)},
		{SheetMastery, []string{"Atom", "Section", "Level", "Attempts", "Correct", "Recent Accuracy", "Avg Time (s)", "Last Attempt"}, masteryRows(d.Mastery)},
		{SheetReviews, []string{"Item", "Status", "Due", "Interval (days)", "Repetitions", "Ease", "Lapses"}, reviewRows(d.Reviews, d.Now)},
	}

	for i, sh := range sheets {
		index, err := f.NewSheet(sh.name)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", sh.name, err)
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}
		if err := writeSheet(f, sh); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}
	return f, nil
}

// Write streams the workbook to w.
func Write(w io.Writer, d Data) error {
	f, err := Workbook(d)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteFile saves the workbook at path.
func WriteFile(path string, d Data) error {
	f, err := Workbook(d)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sh sheet) error {
	header := make([]any, len(sh.headers))
	for i, h := range sh.headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sh.name, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sh.name, err)
	}
	for i, row := range sh.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sh.name, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sh.name, i+1, err)
		}
	}
	return nil
}

func ratingRows(rs []*rating.Rating) [][]any {
	out := make([][]any, 0, len(rs))
	for _, r := range rs {
		if r == nil {
			continue
		}
		streak := ""
		if r.StreakType != rating.StreakNone {
			streak = fmt.Sprintf("%d %s", r.CurrentStreak, r.StreakType)
		}
		out = append(out, []any{
			string(r.Scope), r.ScopeKey, r.Value, r.Deviation, r.GamesPlayed, r.PeakValue, streak, formatTime(&r.UpdatedAt),
		})
	}
	return out
}

func masteryRows(rows []mastery.AtomMastery) [][]any {
	out := make([][]any, 0, len(rows))
	for i := range rows {
		m := &rows[i]
		out = append(out, []any{
			m.AtomID, m.Section, string(m.Level), m.TotalAttempts, m.CorrectAttempts,
			round2(m.RecentAccuracy()), round2(m.AvgTime), formatTime(m.LastAttemptAt),
		})
	}
	return out
}

func reviewRows(items []spacedrep.Item, now time.Time) [][]any {
	out := make([][]any, 0, len(items))
	for i := range items {
		it := &items[i]
		out = append(out, []any{
			it.ItemID, string(it.Status(now)), formatTime(&it.DueDate), it.IntervalDays, it.Repetitions, round2(it.EaseFactor), it.Lapses,
		})
	}
	return out
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
