package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store owns the SQLite connection and hands out repositories.
type Store struct {
	db  *sql.DB
	drv *entsql.Driver
	seq *sequenceCounter
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates any missing tables.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Pragmas are per connection and SQLite has a single writer.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, drv: entsql.OpenDB(dialect.SQLite, db), seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// Ratings returns the rating repository.
func (s *Store) Ratings() RatingRepo { return &ratingRepo{db: s.db} }

// Mastery returns the atom mastery repository.
func (s *Store) Mastery() MasteryRepo { return &masteryRepo{db: s.db} }

// Reviews returns the review item repository.
func (s *Store) Reviews() ReviewRepo { return &reviewRepo{db: s.db} }

// Timers returns the timer session repository.
func (s *Store) Timers() TimerRepo { return &timerRepo{db: s.db} }

// Events returns the attempt event repository.
func (s *Store) Events() EventRepo { return &eventRepo{db: s.db, seq: s.seq} }

// SnapshotRepo returns a SnapshotRepo backed by this store.
func (s *Store) SnapshotRepo() SnapshotRepo {
	return &snapshotRepo{db: s.db}
}

// querier is the subset of *sql.DB and *sql.Tx the repositories use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx hands out repositories bound to one transaction. With a single open
// connection, only Tx repositories may be used inside InTx.
type Tx struct {
	tx  *sql.Tx
	seq *sequenceCounter
}

// InTx runs fn in a transaction, committing when fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx, seq: s.seq}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *Tx) Ratings() RatingRepo { return &ratingRepo{db: t.tx} }
func (t *Tx) Mastery() MasteryRepo { return &masteryRepo{db: t.tx} }
func (t *Tx) Reviews() ReviewRepo { return &reviewRepo{db: t.tx} }
func (t *Tx) Timers() TimerRepo { return &timerRepo{db: t.tx} }
func (t *Tx) Events() EventRepo { return &eventRepo{db: t.tx, seq: t.seq} }

// ClearLearnerState deletes every rating, mastery row and review item.
// Events, timers and snapshots are kept.
func (t *Tx) ClearLearnerState(ctx context.Context) error {
	for _, table := range []string{"ratings", "atom_mastery", "review_items"} {
		query, args := builder().Delete(table).Query()
		if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// builder returns a SQL builder for the SQLite dialect.
func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

// applyPragmas configures SQLite for single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. TRAINSCHED_DB environment variable
// 2. $XDG_DATA_HOME/trainsched/trainsched.db
// 3. ~/.local/share/trainsched/trainsched.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("TRAINSCHED_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "trainsched", "trainsched.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
