// Package sqlite provides the embedded SQLite document store for Zennify.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	msqlite "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/zennify/zennify/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a SQLite connection with WAL mode and migrations.
// A DB returned to a RunInTx callback routes every call through the
// open transaction.
type DB struct {
	db   *sql.DB
	q    querier
	inTx bool
}

var (
	_ domain.Store        = (*DB)(nil)
	_ domain.AccountStore = (*DB)(nil)
)

// Open creates or opens the SQLite database at dir/zennify.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "zennify.db")
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db, q: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	if d.inTx {
		return nil
	}
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return domain.Remote("ping", d.db.PingContext(ctx))
}

// RunInTx runs fn inside a database transaction. Nested calls join the
// outer transaction.
func (d *DB) RunInTx(ctx context.Context, fn func(tx domain.Store) error) error {
	if d.inTx {
		return fn(d)
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Remote("begin", err)
	}
	if err := fn(&DB{db: d.db, q: tx, inTx: true}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return domain.Remote("commit", tx.Commit())
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// Identity
		`CREATE TABLE IF NOT EXISTS accounts (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			username      TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at    INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS revoked_tokens (
			id         TEXT PRIMARY KEY,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_revoked_expiry ON revoked_tokens(expires_at)`,

		// Progression aggregate, one row per user
		`CREATE TABLE IF NOT EXISTS progress (
			user_id            TEXT PRIMARY KEY,
			username           TEXT NOT NULL DEFAULT '',
			xp                 INTEGER NOT NULL DEFAULT 0,
			level              INTEGER NOT NULL DEFAULT 1,
			streak_days        INTEGER NOT NULL DEFAULT 1,
			longest_streak     INTEGER NOT NULL DEFAULT 1,
			last_activity_date TEXT NOT NULL DEFAULT '',
			quests_completed   INTEGER NOT NULL DEFAULT 0,
			mood_entries       INTEGER NOT NULL DEFAULT 0,
			badges             TEXT NOT NULL DEFAULT '[]',
			created_at         INTEGER NOT NULL,
			updated_at         INTEGER NOT NULL
		)`,

		// Daily quest documents keyed by (user, YYYY-MM-DD)
		`CREATE TABLE IF NOT EXISTS daily_quests (
			user_id TEXT NOT NULL,
			date    TEXT NOT NULL,
			quests  TEXT NOT NULL DEFAULT '[]',
			PRIMARY KEY (user_id, date)
		)`,

		// Mood documents keyed by (user, YYYY-MM-DD)
		`CREATE TABLE IF NOT EXISTS moods (
			user_id    TEXT NOT NULL,
			date       TEXT NOT NULL,
			mood       TEXT NOT NULL,
			note       TEXT NOT NULL DEFAULT '',
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, date)
		)`,

		// Notifications
		`CREATE TABLE IF NOT EXISTS notifications (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			type       TEXT NOT NULL,
			title      TEXT NOT NULL,
			body       TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			shown      BOOLEAN DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notif_user_created ON notifications(user_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func unixOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// isConstraint reports whether err is a SQLite constraint violation.
func isConstraint(err error) bool {
	var se *msqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
