package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/trainsched/internal/apperr"
	"github.com/abhisek/trainsched/internal/mastery"
	"github.com/abhisek/trainsched/internal/rating"
	"github.com/abhisek/trainsched/internal/spacedrep"
	"github.com/abhisek/trainsched/internal/timing"
)

type ratingRepo struct{ db querier }

func (r *ratingRepo) Upsert(ctx context.Context, rt *rating.Rating) error {
	if rt == nil {
		return apperr.Invalid("rating", "must not be nil")
	}
	data, err := json.Marshal(rt)
	if err != nil {
		return fmt.Errorf("marshal rating: %w", err)
	}
	query, args := builder().Insert("ratings").
		Columns("scope", "scope_key", "value", "data", "updated_at").
		Values(string(rt.Scope), rt.ScopeKey, rt.Value, string(data), toMillis(rt.UpdatedAt)).
		OnConflict(entsql.ConflictColumns("scope", "scope_key"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert rating %s: %w", rt.Key(), err)
	}
	return nil
}

func (r *ratingRepo) Get(ctx context.Context, key rating.Key) (*rating.Rating, error) {
	b := builder()
	query, args := b.Select("data").From(b.Table("ratings")).
		Where(entsql.And(entsql.EQ("scope", string(key.Scope)), entsql.EQ("scope_key", key.ID))).
		Query()

	var data string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("rating", key.String())
	}
	if err != nil {
		return nil, fmt.Errorf("query rating %s: %w", key, err)
	}
	var rt rating.Rating
	if err := json.Unmarshal([]byte(data), &rt); err != nil {
		return nil, fmt.Errorf("unmarshal rating %s: %w", key, err)
	}
	return &rt, nil
}

func (r *ratingRepo) List(ctx context.Context) ([]*rating.Rating, error) {
	b := builder()
	query, args := b.Select("data").From(b.Table("ratings")).OrderBy("scope", "scope_key").Query()
	return scanJSON[*rating.Rating](ctx, r.db, "ratings", query, args)
}

type masteryRepo struct{ db querier }

func (r *masteryRepo) Upsert(ctx context.Context, row mastery.AtomMastery) error {
	if row.AtomID == "" {
		return apperr.Invalid("atomID", "must not be empty")
	}
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal mastery: %w", err)
	}
	query, args := builder().Insert("atom_mastery").
		Columns("atom_id", "section", "level", "data").
		Values(row.AtomID, row.Section, string(row.Level), string(data)).
		OnConflict(entsql.ConflictColumns("atom_id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert mastery %s: %w", row.AtomID, err)
	}
	return nil
}

func (r *masteryRepo) List(ctx context.Context) ([]mastery.AtomMastery, error) {
	b := builder()
	query, args := b.Select("data").From(b.Table("atom_mastery")).OrderBy("atom_id").Query()
	return scanJSON[mastery.AtomMastery](ctx, r.db, "atom mastery", query, args)
}

type reviewRepo struct{ db querier }

func (r *reviewRepo) Upsert(ctx context.Context, item spacedrep.Item) error {
	if item.ItemID == "" {
		return apperr.Invalid("itemID", "must not be empty")
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal review item: %w", err)
	}
	query, args := builder().Insert("review_items").
		Columns("item_id", "due_at", "data").
		Values(item.ItemID, toMillis(item.DueDate), string(data)).
		OnConflict(entsql.ConflictColumns("item_id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert review item %s: %w", item.ItemID, err)
	}
	return nil
}

func (r *reviewRepo) List(ctx context.Context) ([]spacedrep.Item, error) {
	b := builder()
	query, args := b.Select("data").From(b.Table("review_items")).OrderBy("due_at", "item_id").Query()
	return scanJSON[spacedrep.Item](ctx, r.db, "review items", query, args)
}

func (r *reviewRepo) DueBy(ctx context.Context, asOf time.Time) ([]spacedrep.Item, error) {
	b := builder()
	query, args := b.Select("data").From(b.Table("review_items")).
		Where(entsql.LTE("due_at", toMillis(asOf))).
		OrderBy("due_at", "item_id").
		Query()
	return scanJSON[spacedrep.Item](ctx, r.db, "due review items", query, args)
}

type timerRepo struct{ db querier }

func (r *timerRepo) Save(ctx context.Context, s timing.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal timer: %w", err)
	}
	query, args := builder().Insert("timer_sessions").
		Columns("id", "question_id", "state", "started_at", "data").
		Values(s.ID, s.QuestionID, string(s.State), toMillis(s.StartedAt), string(data)).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save timer %s: %w", s.ID, err)
	}
	return nil
}

func (r *timerRepo) List(ctx context.Context) ([]timing.Session, error) {
	b := builder()
	query, args := b.Select("data").From(b.Table("timer_sessions")).OrderBy("started_at", "id").Query()
	return scanJSON[timing.Session](ctx, r.db, "timers", query, args)
}

func (r *timerRepo) Delete(ctx context.Context, id string) error {
	query, args := builder().Delete("timer_sessions").Where(entsql.EQ("id", id)).Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete timer %s: %w", id, err)
	}
	return nil
}

// scanJSON runs a single-column query over JSON-encoded rows.
func scanJSON[T any](ctx context.Context, db querier, what, query string, args []any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", what, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", what, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return out, nil
}
