package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kesslerio/dialpad-openclaw-skill/internal/event"
	"github.com/kesslerio/dialpad-openclaw-skill/internal/models"
)

// Store is the durable message store contract used by the webhook service
// and the /store ingress.
type Store interface {
	Close() error
	StoreEvent(raw models.RawEvent) (*models.StoreResult, error)
	CacheContactName(recordID, name string) error
	SearchMessages(query string, limit int) ([]*StoredMessage, error)
}

// StoredMessage is one persisted webhook event row.
type StoredMessage struct {
	ID          int64  `json:"id"`
	RecordID    string `json:"record_id"`
	MessageID   string `json:"message_id,omitempty"`
	Direction   string `json:"direction"`
	FromNumber  string `json:"from_number"`
	ToNumber    string `json:"to_number"`
	Body        string `json:"body"`
	ContactName string `json:"contact_name,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// Database stores webhook events in SQLite. Full-text search over message
// bodies uses FTS5 when the driver build carries it and falls back to LIKE
// matching when it does not.
type Database struct {
	db  *sql.DB
	fts bool
}

var _ Store = (*Database)(nil)

// NewDatabase opens (or creates) the message store at the given DSN.
func NewDatabase(dsn string) (*Database, error) {
	if dsn == "" {
		return nil, errors.New("database DSN is required")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("ping failed: %w, close failed: %v", err, closeErr)
		}
		return nil, err
	}

	if err := createTables(db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("create tables failed: %w, close failed: %v", err, closeErr)
		}
		return nil, err
	}

	d := &Database{db: db}
	d.fts = createSearchIndex(db) == nil
	return d, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id TEXT NOT NULL,
			message_id TEXT UNIQUE,
			direction TEXT NOT NULL,
			from_number TEXT,
			to_number TEXT,
			body TEXT NOT NULL,
			contact_name TEXT,
			event_timestamp TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)
	`)
	return err
}

func createSearchIndex(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts
		USING fts5(body, content='messages', content_rowid='id')
	`)
	return err
}

// Close closes the underlying database handle.
func (d *Database) Close() error {
	if d == nil || d.db == nil {
		return errors.New("database already closed")
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// StoreEvent persists one raw webhook event. Events carrying a provider
// message id are stored at most once: a repeat delivery returns the
// existing record with Stored=true and Duplicate=true rather than an
// error, which is what keeps the webhook path idempotent under provider
// retries.
func (d *Database) StoreEvent(raw models.RawEvent) (*models.StoreResult, error) {
	if d == nil || d.db == nil {
		return nil, errors.New("database is closed")
	}
	if raw == nil {
		return nil, errors.New("event cannot be nil")
	}

	messageID := raw.String("message_id")
	if messageID == "" {
		messageID = raw.String("id")
	}
	fromNumber := models.Stringify(models.FirstValue(raw["from_number"]))
	toNumber := models.Stringify(raw.First("to_number"))
	body := event.MessageText(raw)
	direction := raw.String("direction")
	if direction == "" {
		direction = "unknown"
	}
	timestamp := raw.String("timestamp")
	if timestamp == "" {
		timestamp = raw.String("event_timestamp")
	}

	if messageID != "" {
		if existing, err := d.findByMessageID(messageID); err != nil {
			return nil, err
		} else if existing != nil {
			return &models.StoreResult{Stored: true, Duplicate: true, Record: recordFor(existing)}, nil
		}
	}

	recordID := uuid.NewString()
	contactName := d.cachedContactName(fromNumber)

	result, err := d.db.Exec(
		`INSERT OR IGNORE INTO messages
			(record_id, message_id, direction, from_number, to_number, body, contact_name, event_timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		recordID, nullable(messageID), direction, fromNumber, toNumber, body, contactName, timestamp,
	)
	if err != nil {
		return &models.StoreResult{Stored: false, Error: err.Error()}, nil
	}

	affected, _ := result.RowsAffected()
	if affected == 0 && messageID != "" {
		// Lost a race with a concurrent delivery of the same event.
		existing, err := d.findByMessageID(messageID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &models.StoreResult{Stored: true, Duplicate: true, Record: recordFor(existing)}, nil
		}
	}

	if d.fts {
		// Search index failures must not fail storage.
		if rowID, err := result.LastInsertId(); err == nil {
			_, _ = d.db.Exec(`INSERT INTO messages_fts (rowid, body) VALUES (?, ?)`, rowID, body)
		}
	}

	return &models.StoreResult{
		Stored: true,
		Record: &models.StoredRecord{RecordID: recordID, MessageID: messageID, ContactName: contactName},
	}, nil
}

// CacheContactName saves a resolved contact name on a stored record so
// later events from the same number skip the external lookup.
func (d *Database) CacheContactName(recordID, name string) error {
	if d == nil || d.db == nil {
		return errors.New("database is closed")
	}
	if recordID == "" || name == "" {
		return nil
	}
	_, err := d.db.Exec(`UPDATE messages SET contact_name = ? WHERE record_id = ?`, name, recordID)
	return err
}

// SearchMessages finds stored messages whose body matches the query.
func (d *Database) SearchMessages(query string, limit int) ([]*StoredMessage, error) {
	if d == nil || d.db == nil {
		return nil, errors.New("database is closed")
	}
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var err error
	if d.fts {
		rows, err = d.db.Query(`
			SELECT m.id, m.record_id, COALESCE(m.message_id, ''), m.direction,
				COALESCE(m.from_number, ''), COALESCE(m.to_number, ''), m.body,
				COALESCE(m.contact_name, ''), COALESCE(m.event_timestamp, ''), m.created_at
			FROM messages_fts f JOIN messages m ON m.id = f.rowid
			WHERE messages_fts MATCH ? ORDER BY m.id DESC LIMIT ?`, query, limit)
	} else {
		rows, err = d.db.Query(`
			SELECT id, record_id, COALESCE(message_id, ''), direction,
				COALESCE(from_number, ''), COALESCE(to_number, ''), body,
				COALESCE(contact_name, ''), COALESCE(event_timestamp, ''), created_at
			FROM messages WHERE body LIKE ? ORDER BY id DESC LIMIT ?`, "%"+query+"%", limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*StoredMessage
	for rows.Next() {
		msg := &StoredMessage{}
		if err := rows.Scan(&msg.ID, &msg.RecordID, &msg.MessageID, &msg.Direction,
			&msg.FromNumber, &msg.ToNumber, &msg.Body, &msg.ContactName,
			&msg.Timestamp, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (d *Database) findByMessageID(messageID string) (*StoredMessage, error) {
	row := d.db.QueryRow(`
		SELECT id, record_id, COALESCE(message_id, ''), direction,
			COALESCE(from_number, ''), COALESCE(to_number, ''), body,
			COALESCE(contact_name, ''), COALESCE(event_timestamp, ''), created_at
		FROM messages WHERE message_id = ?`, messageID)

	msg := &StoredMessage{}
	err := row.Scan(&msg.ID, &msg.RecordID, &msg.MessageID, &msg.Direction,
		&msg.FromNumber, &msg.ToNumber, &msg.Body, &msg.ContactName,
		&msg.Timestamp, &msg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (d *Database) cachedContactName(fromNumber string) string {
	if fromNumber == "" {
		return ""
	}
	var name string
	err := d.db.QueryRow(`
		SELECT contact_name FROM messages
		WHERE from_number = ? AND contact_name IS NOT NULL AND contact_name != '' AND contact_name != 'Unknown'
		ORDER BY id DESC LIMIT 1`, fromNumber).Scan(&name)
	if err != nil {
		return ""
	}
	return name
}

func recordFor(msg *StoredMessage) *models.StoredRecord {
	return &models.StoredRecord{
		RecordID:    msg.RecordID,
		MessageID:   msg.MessageID,
		ContactName: msg.ContactName,
	}
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
