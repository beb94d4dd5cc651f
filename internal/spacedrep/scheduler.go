package spacedrep

import (
	"math"
	"sort"
	"time"

	"github.com/abhisek/trainsched/internal/apperr"
)

// ProcessReview applies one SM-2 review and returns the updated item.
// A nil item creates a new one for itemID; the input is never mutated.
func ProcessReview(item *Item, itemID string, quality int, now time.Time) (Item, error) {
	if err := validQuality(quality); err != nil {
		return Item{}, err
	}
	reviewedAt := now

	if item == nil {
		if itemID == "" {
			return Item{}, apperr.Invalid("itemID", "must not be empty")
		}
		it := Item{
			ItemID:         itemID,
			EaseFactor:     InitialEaseFactor,
			IntervalDays:   FirstIntervalDays,
			LastReviewedAt: &reviewedAt,
		}
		if quality >= PassingQuality {
			it.Repetitions = 1
		} else {
			it.Lapses = 1
		}
		it.DueDate = now.AddDate(0, 0, it.IntervalDays)
		return it, nil
	}

	it := *item
	it.EaseFactor = NextEaseFactor(math.Max(it.EaseFactor, MinEaseFactor), quality)
	it.LastReviewedAt = &reviewedAt

	if quality < PassingQuality {
		it.Repetitions = 0
		it.IntervalDays = FirstIntervalDays
		it.Lapses++
	} else {
		it.Repetitions++
		switch it.Repetitions {
		case 1:
			it.IntervalDays = FirstIntervalDays
		case 2:
			it.IntervalDays = SecondIntervalDays
		default:
			it.IntervalDays = max(1, int(math.Round(float64(item.IntervalDays)*it.EaseFactor)))
		}
	}
	it.DueDate = now.AddDate(0, 0, it.IntervalDays)
	return it, nil
}

// Enqueue creates an item that is due immediately, for items the caller
// wants reviewed without a prior failure.
func Enqueue(itemID string, now time.Time) (Item, error) {
	if itemID == "" {
		return Item{}, apperr.Invalid("itemID", "must not be empty")
	}
	return Item{
		ItemID:       itemID,
		EaseFactor:   InitialEaseFactor,
		IntervalDays: FirstIntervalDays,
		DueDate:      now,
	}, nil
}

// Suspend holds the item out of due queries until the given time,
// or indefinitely when until is nil.
func Suspend(item *Item, until *time.Time) {
	item.Suspended = true
	if until == nil {
		item.SuspendedUntil = nil
		return
	}
	u := *until
	item.SuspendedUntil = &u
}

// Unsuspend returns the item to the queue.
func Unsuspend(item *Item) {
	item.Suspended = false
	item.SuspendedUntil = nil
}

// GetItemsDue returns active items due at asOf, earliest due date first,
// ties broken by item ID.
func GetItemsDue(items []Item, asOf time.Time) []Item {
	var due []Item
	for i := range items {
		if items[i].IsDue(asOf) {
			due = append(due, items[i])
		}
	}
	sortByDue(due)
	return due
}

func sortByDue(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].DueDate.Equal(items[j].DueDate) {
			return items[i].DueDate.Before(items[j].DueDate)
		}
		return items[i].ItemID < items[j].ItemID
	})
}

// Scheduler keeps the review queue of one learner in memory.
type Scheduler struct {
	items map[string]*Item
}

// NewScheduler creates a scheduler from previously persisted items.
func NewScheduler(items []Item) *Scheduler {
	s := &Scheduler{items: make(map[string]*Item, len(items))}
	for i := range items {
		it := items[i]
		if it.EaseFactor < MinEaseFactor {
			it.EaseFactor = MinEaseFactor
		}
		if it.IntervalDays < 1 {
			it.IntervalDays = 1
		}
		s.items[it.ItemID] = &it
	}
	return s
}

// Get returns the item, or ErrNotFound.
func (s *Scheduler) Get(itemID string) (Item, error) {
	it, ok := s.items[itemID]
	if !ok {
		return Item{}, apperr.NotFound("review item", itemID)
	}
	return *it, nil
}

// Review records a review, creating the item on first sight.
func (s *Scheduler) Review(itemID string, quality int, now time.Time) (Item, error) {
	updated, err := ProcessReview(s.items[itemID], itemID, quality, now)
	if err != nil {
		return Item{}, err
	}
	s.items[itemID] = &updated
	return updated, nil
}

// RecordOutcome reviews an item that is already queued, or queues it on a
// first failure. Correct answers on unknown items are ignored. It reports
// whether the queue changed.
func (s *Scheduler) RecordOutcome(itemID string, correct bool, d Difficulty, now time.Time) (bool, error) {
	q, err := QualityFromOutcome(correct, d)
	if err != nil {
		return false, err
	}
	if _, ok := s.items[itemID]; !ok && q >= PassingQuality {
		return false, nil
	}
	if _, err := s.Review(itemID, q, now); err != nil {
		return false, err
	}
	return true, nil
}

// Enqueue adds an item due now. An already queued item is left unchanged.
func (s *Scheduler) Enqueue(itemID string, now time.Time) (Item, error) {
	if it, ok := s.items[itemID]; ok {
		return *it, nil
	}
	it, err := Enqueue(itemID, now)
	if err != nil {
		return Item{}, err
	}
	s.items[itemID] = &it
	return it, nil
}

// Suspend suspends a queued item.
func (s *Scheduler) Suspend(itemID string, until *time.Time) error {
	it, ok := s.items[itemID]
	if !ok {
		return apperr.NotFound("review item", itemID)
	}
	Suspend(it, until)
	return nil
}

// Unsuspend reactivates a queued item.
func (s *Scheduler) Unsuspend(itemID string) error {
	it, ok := s.items[itemID]
	if !ok {
		return apperr.NotFound("review item", itemID)
	}
	Unsuspend(it)
	return nil
}

// Due returns the items due at asOf.
func (s *Scheduler) Due(asOf time.Time) []Item {
	return GetItemsDue(s.Items(), asOf)
}

// Items exports every item ordered by ID, for persistence.
func (s *Scheduler) Items() []Item {
	out := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}
