// Package store provides SQLite-backed persistence for mechanism
// configurations and their cached trajectories.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS mechanisms (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	version    INTEGER NOT NULL DEFAULT 1,
	definition TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS trajectories (
	mechanism_id      TEXT PRIMARY KEY,
	mechanism_version INTEGER NOT NULL,
	steps             INTEGER NOT NULL,
	thetas            TEXT NOT NULL,
	frames            TEXT NOT NULL,
	converged         TEXT NOT NULL DEFAULT '[]',
	fail_count        INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS imports (
	path         TEXT PRIMARY KEY,
	checksum     TEXT NOT NULL,
	mechanism_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_imports_mechanism ON imports(mechanism_id);
`

// DB wraps a sql.DB with store-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
