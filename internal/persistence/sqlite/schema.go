package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; schema_migrations records the last
// applied version so restarts are idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		uid           TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		display_name  TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'staff',
		position      TEXT NOT NULL DEFAULT '',
		hourly_rate   INTEGER NOT NULL DEFAULT 0 CHECK (hourly_rate >= 0),
		allowed_rooms TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL DEFAULT 'checked_out',
		ignore_limit  INTEGER NOT NULL DEFAULT 0,
		password_hash TEXT NOT NULL,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id        TEXT PRIMARY KEY,
		uid       TEXT NOT NULL REFERENCES users(uid) ON DELETE CASCADE,
		action    TEXT NOT NULL CHECK (action IN ('in', 'out')),
		timestamp TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_uid_timestamp ON events(uid, timestamp)`,
	`CREATE TABLE IF NOT EXISTS system_state (
		id                  INTEGER PRIMARY KEY CHECK (id = 1),
		time_offset_seconds INTEGER NOT NULL DEFAULT 0,
		emergency_mode      INTEGER NOT NULL DEFAULT 0,
		last_updated        TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		uid        TEXT NOT NULL REFERENCES users(uid) ON DELETE CASCADE,
		token      TEXT NOT NULL UNIQUE,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		revoked_at TEXT
	)`,
}

// Migrate brings the schema up to the current version.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	if _, err := pool.DB().ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current int
	if err := pool.DB().QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		version := i + 1
		statement := migrations[i]
		if err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(statement); err != nil {
				return fmt.Errorf("migration %d failed: %w", version, err)
			}
			if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", version, err)
			}
			return nil
		}); err != nil {
			return err
		}
	}

	return nil
}
