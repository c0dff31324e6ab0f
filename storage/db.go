package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type DB struct {
	conn *sql.DB
}

// Open opens the history database at path and initializes the schema
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The engine, the dashboard and the CLI share one file.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=2000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		started_ms INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,

		mode TEXT NOT NULL,
		status TEXT NOT NULL,

		-- Empty when no letter was selected
		key TEXT NOT NULL DEFAULT '',
		blob_size INTEGER NOT NULL DEFAULT 0,

		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_started ON attempts(started_ms);
	CREATE INDEX IF NOT EXISTS idx_attempts_key ON attempts(key);
	CREATE INDEX IF NOT EXISTS idx_attempts_status ON attempts(status);
	`

	_, err := db.conn.Exec(schema)
	return err
}
