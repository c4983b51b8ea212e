package db

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Ledger is the idempotent "already processed" record keyed by provider
// event identifier. Marking an already-marked id is a silent no-op, which
// is what makes delivery at-most-once instead of exactly-once-or-crash.
type Ledger struct {
	db *sql.DB
}

// NewLedger opens (or creates) a seen-event ledger at the given path.
// Parent directories are created as needed.
func NewLedger(path string) (*Ledger, error) {
	if path == "" {
		return nil, errors.New("ledger path is required")
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = conn.Exec(`
		CREATE TABLE IF NOT EXISTS events_seen (
			event_id TEXT PRIMARY KEY,
			notified_at TEXT NOT NULL
		)
	`)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &Ledger{db: conn}, nil
}

// Close closes the ledger database handle.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return errors.New("ledger already closed")
	}
	err := l.db.Close()
	l.db = nil
	return err
}

// HasSeen reports whether an event id was already recorded.
func (l *Ledger) HasSeen(eventID string) (bool, error) {
	if l == nil || l.db == nil {
		return false, errors.New("ledger is closed")
	}
	if eventID == "" {
		return false, errors.New("event ID is required")
	}

	var one int
	err := l.db.QueryRow(`SELECT 1 FROM events_seen WHERE event_id = ?`, eventID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkSeen records an event id. The insert is an idempotent upsert; a
// duplicate id leaves exactly one row and returns no error.
func (l *Ledger) MarkSeen(eventID string) error {
	if l == nil || l.db == nil {
		return errors.New("ledger is closed")
	}
	if eventID == "" {
		return errors.New("event ID is required")
	}

	_, err := l.db.Exec(
		`INSERT OR IGNORE INTO events_seen (event_id, notified_at) VALUES (?, ?)`,
		eventID, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}
