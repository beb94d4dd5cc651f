package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// sequenceCounter hands out the global monotonic sequence stamped on every
// attempt event and recorded in snapshots, so a snapshot plus the events
// after its sequence reproduce current state.
//
// The mutex serializes within the process; the RETURNING clause makes the
// increment atomic at the database level.
type sequenceCounter struct {
	mu sync.Mutex
	db *sql.DB
}

// newSequenceCounter creates a counter and ensures the tracking table exists.
func newSequenceCounter(db *sql.DB) (*sequenceCounter, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{db: db}, nil
}

// Next atomically returns the next sequence number and increments the counter.
// The increment runs on q so it commits or rolls back with the caller's
// transaction.
func (sc *sequenceCounter) Next(ctx context.Context, q querier) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := q.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

// Current returns the last sequence handed out, 0 when none.
func (sc *sequenceCounter) Current(ctx context.Context) (int64, error) {
	var next int64
	if err := sc.db.QueryRowContext(ctx, `SELECT next_val FROM global_sequence WHERE id = 1`).Scan(&next); err != nil {
		return 0, fmt.Errorf("current sequence: %w", err)
	}
	return next - 1, nil
}

// eventRepo implements EventRepo.
type eventRepo struct {
	db  querier
	seq *sequenceCounter
}

var attemptColumns = []string{
	"sequence", "atom_id", "question_id", "section", "correct", "guessed", "question_type",
	"time_seconds", "budget_seconds", "time_category", "abandon_reason", "outcome", "xp",
	"session_id", "created_at",
}

func (r *eventRepo) AppendAttempt(ctx context.Context, data AttemptEventData) (int64, error) {
	seqNum, err := r.seq.Next(ctx, r.db)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}

	query, args := builder().Insert("attempt_events").
		Columns(attemptColumns...).
		Values(seqNum, data.AtomID, data.QuestionID, data.Section, data.Correct, data.Guessed, data.QuestionType,
			data.TimeSeconds, data.BudgetSeconds, data.TimeCategory, data.AbandonReason, data.Outcome, data.XP,
			data.SessionID, toMillis(data.At)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("save attempt event: %w", err)
	}
	return seqNum, nil
}

func (r *eventRepo) RecentAttempts(ctx context.Context, opts QueryOpts) ([]AttemptEvent, error) {
	b := builder()
	sel := b.Select(attemptColumns...).From(b.Table("attempt_events"))

	var preds []*entsql.Predicate
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("created_at", toMillis(opts.From)))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("created_at", toMillis(opts.To)))
	}
	if opts.AtomID != "" {
		preds = append(preds, entsql.EQ("atom_id", opts.AtomID))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Desc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempt events: %w", err)
	}
	defer rows.Close()

	var out []AttemptEvent
	for rows.Next() {
		var (
			e  AttemptEvent
			at int64
		)
		if err := rows.Scan(&e.Sequence, &e.AtomID, &e.QuestionID, &e.Section, &e.Correct, &e.Guessed, &e.QuestionType,
			&e.TimeSeconds, &e.BudgetSeconds, &e.TimeCategory, &e.AbandonReason, &e.Outcome, &e.XP,
			&e.SessionID, &at); err != nil {
			return nil, fmt.Errorf("scan attempt event: %w", err)
		}
		e.At = fromMillis(at)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempt events: %w", err)
	}

	// Oldest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *eventRepo) SectionShares(ctx context.Context, since time.Time) (map[string]float64, error) {
	b := builder()
	query, args := b.Select("section", entsql.As(entsql.Count("*"), "n")).
		From(b.Table("attempt_events")).
		Where(entsql.GTE("created_at", toMillis(since))).
		GroupBy("section").
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query section shares: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	total := 0
	for rows.Next() {
		var (
			section string
			n       int
		)
		if err := rows.Scan(&section, &n); err != nil {
			return nil, fmt.Errorf("scan section share: %w", err)
		}
		if section == "" {
			continue
		}
		counts[section] = n
		total += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate section shares: %w", err)
	}

	shares := make(map[string]float64, len(counts))
	for s, n := range counts {
		shares[s] = float64(n) / float64(total)
	}
	return shares, nil
}

func (r *eventRepo) LastSequence(ctx context.Context) (int64, error) {
	return r.seq.Current(ctx)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
