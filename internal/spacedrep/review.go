package spacedrep

import "time"

// Item holds the SM-2 state for one previously seen item.
type Item struct {
	ItemID         string     `json:"item_id"`
	EaseFactor     float64    `json:"ease_factor"`
	IntervalDays   int        `json:"interval_days"`
	Repetitions    int        `json:"repetitions"`
	Lapses         int        `json:"lapses"`
	DueDate        time.Time  `json:"due_date"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	Suspended      bool       `json:"suspended"`
	SuspendedUntil *time.Time `json:"suspended_until,omitempty"`
}

// IsSuspended reports whether the item is held out of the queue at now.
// A suspension without an end date lasts until Unsuspend.
func (it *Item) IsSuspended(now time.Time) bool {
	if !it.Suspended {
		return false
	}
	return it.SuspendedUntil == nil || now.Before(*it.SuspendedUntil)
}

// IsDue returns true if the item is active and at or past its due date.
func (it *Item) IsDue(now time.Time) bool {
	return !it.IsSuspended(now) && !now.Before(it.DueDate)
}

// OverdueDays returns how many days past due the item is. Returns 0 if not yet due.
func (it *Item) OverdueDays(now time.Time) float64 {
	if now.Before(it.DueDate) {
		return 0
	}
	return now.Sub(it.DueDate).Hours() / 24.0
}

// pastGrace is true once the item is overdue by more than half its interval.
func (it *Item) pastGrace(now time.Time) bool {
	if !it.IsDue(now) {
		return false
	}
	graceHours := float64(max(it.IntervalDays, 1)) * 0.5 * 24.0
	threshold := it.DueDate.Add(time.Duration(graceHours * float64(time.Hour)))
	return now.After(threshold)
}

// ReviewStatus describes an item's review status for display.
type ReviewStatus string

const (
	ReviewNotDue    ReviewStatus = "not_due"
	ReviewDue       ReviewStatus = "due"
	ReviewOverdue   ReviewStatus = "overdue"
	ReviewSuspended ReviewStatus = "suspended"
)

// Status returns the review status for display.
func (it *Item) Status(now time.Time) ReviewStatus {
	switch {
	case it.IsSuspended(now):
		return ReviewSuspended
	case it.pastGrace(now):
		return ReviewOverdue
	case it.IsDue(now):
		return ReviewDue
	default:
		return ReviewNotDue
	}
}

// DaysUntilReview returns the number of days until the next review.
// Returns 0 if already due.
func (it *Item) DaysUntilReview(now time.Time) int {
	if !now.Before(it.DueDate) {
		return 0
	}
	return int(it.DueDate.Sub(now).Hours()/24.0) + 1
}
