// Package journal is the append-only activity record: every apply attempt,
// successful or not, lands here. The UI reads it for history; the cache
// consults it to refuse evicting an asset that is still active somewhere.
package journal

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Journal provides SQLite-backed storage for apply records.
type Journal struct {
	db *sql.DB
}

// New opens a Journal at the specified database path. Use ":memory:" for
// in-memory databases (useful for testing).
func New(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS apply_records (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    timestamp TIMESTAMP NOT NULL,
    launcher_kind TEXT NOT NULL,
    version_id TEXT NOT NULL,
    root_path TEXT,
    asset_id TEXT NOT NULL,
    content_hash TEXT,
    outcome TEXT NOT NULL,
    reason TEXT,
    backup_ref TEXT
);

CREATE INDEX IF NOT EXISTS idx_records_target ON apply_records(launcher_kind, version_id);
CREATE INDEX IF NOT EXISTS idx_records_asset ON apply_records(asset_id);
`
