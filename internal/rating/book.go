package rating

import (
	"sort"
	"time"

	"github.com/abhisek/trainsched/internal/apperr"
)

// Book holds the ratings known for one learner, keyed by scope.
// It is not safe for concurrent use; callers computing for different
// learners use different books.
type Book struct {
	ratings map[Key]*Rating
}

// NewBook creates a book, loading any previously persisted ratings.
func NewBook(existing []*Rating) *Book {
	b := &Book{ratings: make(map[Key]*Rating, len(existing))}
	for _, r := range existing {
		if r == nil {
			continue
		}
		b.ratings[r.Key()] = r
	}
	return b
}

// Ensure returns the rating for key, creating it on first encounter.
func (b *Book) Ensure(key Key, now time.Time) *Rating {
	if r, ok := b.ratings[key]; ok {
		return r
	}
	r := New(key.Scope, key.ID, now)
	b.ratings[key] = r
	return r
}

// Get returns the rating for key or ErrNotFound.
func (b *Book) Get(key Key) (*Rating, error) {
	r, ok := b.ratings[key]
	if !ok {
		return nil, apperr.NotFound("rating", key.String())
	}
	return r, nil
}

// Apply folds an outcome into an existing rating.
func (b *Book) Apply(key Key, o Outcome) (Change, error) {
	r, err := b.Get(key)
	if err != nil {
		return Change{}, err
	}
	return ApplyOutcome(r, o)
}

// All returns every rating ordered by scope then key.
func (b *Book) All() []*Rating {
	out := make([]*Rating, 0, len(b.ratings))
	for _, r := range b.ratings {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Scope != out[j].Scope {
			return out[i].Scope < out[j].Scope
		}
		return out[i].ScopeKey < out[j].ScopeKey
	})
	return out
}
