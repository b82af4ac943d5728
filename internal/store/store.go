package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the sqlite-backed document store for alerts, supervisor
// settings, PBX connection configs and dashboard users.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS alerts (
	id              TEXT PRIMARY KEY,
	type            TEXT NOT NULL,
	title           TEXT NOT NULL,
	message         TEXT NOT NULL,
	priority        TEXT NOT NULL,
	acknowledged    INTEGER NOT NULL DEFAULT 0,
	acknowledged_by TEXT,
	acknowledged_at TIMESTAMP,
	agent_id        TEXT,
	agent_name      TEXT,
	metadata_json   TEXT,
	created_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at DESC);

CREATE TABLE IF NOT EXISTS supervisor_settings (
	user_id       TEXT PRIMARY KEY,
	settings_json TEXT NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS pbx_configs (
	vendor     TEXT NOT NULL,
	server_url TEXT NOT NULL,
	api_key    TEXT NOT NULL,
	extension  TEXT,
	port       INTEGER NOT NULL DEFAULT 0,
	verify_tls INTEGER NOT NULL DEFAULT 1,
	enabled    INTEGER NOT NULL DEFAULT 1,
	active     INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (vendor, server_url)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_pbx_configs_active
	ON pbx_configs(vendor) WHERE active = 1;

CREATE TABLE IF NOT EXISTS users (
	username      TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);
`

// Open opens (creating if needed) the sqlite database at path and applies
// the schema. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the raw handle for tests.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }
