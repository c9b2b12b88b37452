// Package index provides a SQLite-backed record of reconciliation runs and
// the artist-to-genre membership they observed.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	artist_root TEXT NOT NULL DEFAULT '',
	genre_root  TEXT NOT NULL DEFAULT '',
	skipped     INTEGER NOT NULL DEFAULT 0,
	discovered  INTEGER NOT NULL DEFAULT 0,
	created     INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	errors      TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS artist_genres (
	artist_path TEXT NOT NULL,
	genre       TEXT NOT NULL,
	UNIQUE(artist_path, genre)
);

CREATE TABLE IF NOT EXISTS genre_notes (
	genre      TEXT PRIMARY KEY,
	path       TEXT NOT NULL,
	run_id     INTEGER NOT NULL REFERENCES runs(id),
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_artist_genres_genre ON artist_genres(genre);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
