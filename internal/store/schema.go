package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Rows keep their full JSON encoding in data; the other columns exist for
// lookups and ordering. Times are unix milliseconds.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ratings (
		scope      TEXT NOT NULL,
		scope_key  TEXT NOT NULL,
		value      INTEGER NOT NULL,
		data       TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (scope, scope_key)
	)`,
	`CREATE TABLE IF NOT EXISTS atom_mastery (
		atom_id    TEXT PRIMARY KEY,
		section    TEXT NOT NULL DEFAULT '',
		level      TEXT NOT NULL,
		data       TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS review_items (
		item_id    TEXT PRIMARY KEY,
		due_at     INTEGER NOT NULL,
		data       TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS review_items_due ON review_items (due_at)`,
	`CREATE TABLE IF NOT EXISTS timer_sessions (
		id          TEXT PRIMARY KEY,
		question_id TEXT NOT NULL,
		state       TEXT NOT NULL,
		started_at  INTEGER NOT NULL,
		data        TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS attempt_events (
		sequence      INTEGER PRIMARY KEY,
		atom_id       TEXT NOT NULL,
		question_id   TEXT NOT NULL DEFAULT '',
		section       TEXT NOT NULL DEFAULT '',
		correct       INTEGER NOT NULL,
		guessed       INTEGER NOT NULL DEFAULT 0,
		question_type TEXT NOT NULL DEFAULT '',
		time_seconds  REAL NOT NULL,
		budget_seconds REAL NOT NULL DEFAULT 0,
		time_category TEXT NOT NULL DEFAULT '',
		abandon_reason TEXT NOT NULL DEFAULT '',
		outcome       TEXT NOT NULL DEFAULT '',
		xp            INTEGER NOT NULL DEFAULT 0,
		session_id    TEXT NOT NULL DEFAULT '',
		created_at    INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS attempt_events_created ON attempt_events (created_at)`,
	`CREATE TABLE IF NOT EXISTS snapshots (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence      INTEGER NOT NULL,
		created_at    INTEGER NOT NULL,
		rules_version TEXT NOT NULL,
		data          TEXT NOT NULL
	)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
