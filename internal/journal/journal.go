// Package journal appends session state transitions to a SQLite database so
// a stale-looking session can be diagnosed after the fact. The live registry
// is memory-only; the journal is never read back for recovery.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SchemaVersion tracks the journal schema. Bump when adding migrations.
const SchemaVersion = 1

// Journal wraps the transitions database. Safe for concurrent use within one
// process; WAL mode plus a busy timeout keeps an external reader (sqlite3
// CLI during debugging) from failing writes.
type Journal struct {
	db *sql.DB
}

// Transition is one recorded state change.
type Transition struct {
	ID           int64
	SessionID    string
	FriendlyName string
	FromState    string
	ToState      string
	Event        string
	At           time.Time
}

// Open creates or opens the journal database at dbPath.
func Open(dbPath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("journal: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal: %s: %w", pragma, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

		CREATE TABLE IF NOT EXISTS transitions (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id    TEXT NOT NULL,
			friendly_name TEXT NOT NULL,
			from_state    TEXT NOT NULL,
			to_state      TEXT NOT NULL,
			event         TEXT NOT NULL,
			at            INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_transitions_session
			ON transitions(session_id, at);
	`)
	if err != nil {
		return fmt.Errorf("journal: migrate: %w", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return fmt.Errorf("journal: schema version: %w", err)
	}
	if count == 0 {
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion); err != nil {
			return fmt.Errorf("journal: schema version: %w", err)
		}
	}
	return nil
}

// Record appends one state change.
func (j *Journal) Record(sessionID, friendlyName, fromState, toState, event string) error {
	_, err := j.db.Exec(
		"INSERT INTO transitions (session_id, friendly_name, from_state, to_state, event, at) VALUES (?, ?, ?, ?, ?, ?)",
		sessionID, friendlyName, fromState, toState, event, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("journal: record: %w", err)
	}
	return nil
}

// Recent returns the newest transitions, most recent first.
func (j *Journal) Recent(limit int) ([]Transition, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.Query(
		"SELECT id, session_id, friendly_name, from_state, to_state, event, at FROM transitions ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var t Transition
		var at int64
		if err := rows.Scan(&t.ID, &t.SessionID, &t.FriendlyName, &t.FromState, &t.ToState, &t.Event, &at); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		t.At = time.Unix(at, 0)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
