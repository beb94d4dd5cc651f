package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"golang.org/x/mod/semver"

	"github.com/abhisek/trainsched/internal/apperr"
)

// SnapshotVersion is the layout version written into SnapshotData.
const SnapshotVersion = 1

// ErrIncompatibleSnapshot is returned when a snapshot was produced by a rule
// set with a different major version than the running one.
var ErrIncompatibleSnapshot = fmt.Errorf("incompatible snapshot: %w", apperr.ErrInvalidInput)

// CheckRules verifies that data was written under rules compatible with
// current. Versions are semver strings ("v1.2.0"); majors must match.
func (d SnapshotData) CheckRules(current string) error {
	if !semver.IsValid(current) {
		return apperr.Invalid("rulesVersion", "running rules version %q is not semver", current)
	}
	if !semver.IsValid(d.RulesVersion) {
		return fmt.Errorf("rules version %q: %w", d.RulesVersion, ErrIncompatibleSnapshot)
	}
	if semver.Major(d.RulesVersion) != semver.Major(current) {
		return fmt.Errorf("rules %s vs running %s: %w", d.RulesVersion, current, ErrIncompatibleSnapshot)
	}
	return nil
}

// snapshotRepo implements SnapshotRepo.
type snapshotRepo struct {
	db *sql.DB
}

func (r *snapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	if snap.Data.Version == 0 {
		snap.Data.Version = SnapshotVersion
	}
	data, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("marshal snapshot data: %w", err)
	}

	query, args := builder().Insert("snapshots").
		Columns("sequence", "created_at", "rules_version", "data").
		Values(snap.Sequence, toMillis(snap.Timestamp), snap.Data.RulesVersion, string(data)).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		snap.ID = int(id)
	}
	return nil
}

func (r *snapshotRepo) Latest(ctx context.Context) (*Snapshot, error) {
	b := builder()
	query, args := b.Select("id", "sequence", "created_at", "data").
		From(b.Table("snapshots")).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Limit(1).
		Query()

	var (
		snap Snapshot
		at   int64
		data string
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&snap.ID, &snap.Sequence, &at, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &snap.Data); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot data: %w", err)
	}
	snap.Timestamp = fromMillis(at)
	return &snap, nil
}

func (r *snapshotRepo) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		return apperr.Invalid("keep", "must be >= 0, got %d", keep)
	}

	var kept []any
	if keep > 0 {
		b := builder()
		query, args := b.Select("id").
			From(b.Table("snapshots")).
			OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
			Limit(keep).
			Query()
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query snapshots for prune: %w", err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan snapshot id: %w", err)
			}
			kept = append(kept, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate snapshots: %w", err)
		}
	}

	del := builder().Delete("snapshots")
	if len(kept) > 0 {
		del.Where(entsql.NotIn("id", kept...))
	}
	query, args := del.Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}
