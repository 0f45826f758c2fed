package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id           INTEGER PRIMARY KEY,
		profile_name TEXT,
		balance      TEXT NOT NULL DEFAULT '0',
		emoji        TEXT NOT NULL DEFAULT '',
		approved     INTEGER NOT NULL DEFAULT 0,
		created_at   INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		payment_id TEXT PRIMARY KEY,
		user_id    INTEGER NOT NULL,
		amount     TEXT NOT NULL,
		status     TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		settled_at INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status)`,
	`CREATE TABLE IF NOT EXISTS pending_requests (
		user_id      INTEGER PRIMARY KEY,
		username     TEXT NOT NULL DEFAULT '',
		fullname     TEXT NOT NULL DEFAULT '',
		requested_at INTEGER NOT NULL
	)`,
}

// Open opens the SQLite database, validates the connection and applies the
// schema. SQLite works best with a single writer, so the pool is capped at
// one connection; all cross-goroutine serialization happens here.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty sqlite path")
	}
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return db, nil
}
