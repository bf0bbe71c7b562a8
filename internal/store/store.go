package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Schema for the history store. Creation is idempotent so every startup can
// apply it unconditionally.
const schema = `
CREATE TABLE IF NOT EXISTS assets (
    content_hash     TEXT PRIMARY KEY,
    original_name    TEXT NOT NULL,
    issuing_session  TEXT,
    size_bytes       INTEGER NOT NULL,
    fingerprint      TEXT,
    registered_ns    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS incidents (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    operation_type    TEXT NOT NULL,
    source_path       TEXT,
    destination_path  TEXT,
    content_hash      TEXT,
    detected_by       TEXT,
    process_name      TEXT,
    severity          TEXT NOT NULL,
    timestamp_ns      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_incidents_timestamp ON incidents(timestamp_ns);
CREATE INDEX IF NOT EXISTS idx_incidents_hash ON incidents(content_hash);
CREATE INDEX IF NOT EXISTS idx_incidents_severity ON incidents(severity);

CREATE TABLE IF NOT EXISTS activities (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp_ns  INTEGER NOT NULL,
    session_id    TEXT NOT NULL,
    activity      TEXT NOT NULL,
    file_name     TEXT NOT NULL,
    ip_address    TEXT,
    user_agent    TEXT,
    extra         TEXT,
    created_date  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activities_file ON activities(file_name);
CREATE INDEX IF NOT EXISTS idx_activities_activity ON activities(activity);
CREATE INDEX IF NOT EXISTS idx_activities_date ON activities(created_date);
CREATE INDEX IF NOT EXISTS idx_activities_session ON activities(session_id);
`

// Store is the shared durable history store. Safe for concurrent use; every
// method runs a short-lived statement and returns once it is committed.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path and applies the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping verifies the database is reachable. Used by the health checker.
func (s *Store) Ping() error {
	return s.db.Ping()
}
