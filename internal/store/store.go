// Package store persists open sessions in SQLite so that a recorder can
// resume an interrupted session instead of losing its chain.
//
// The store mirrors the in-memory chain: events are inserted in append
// order with their computed hashes, and loading a session reconstructs the
// exact document that would have been exported. The pure verification and
// packing paths never touch the store.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"twff/internal/event"
	"twff/internal/session"
)

// ErrSessionNotFound indicates a session ID with no stored row.
var ErrSessionNotFound = errors.New("store: session not found")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    session_id      TEXT PRIMARY KEY,
    version         TEXT NOT NULL,
    user_id         TEXT NOT NULL,
    start_time      TEXT NOT NULL,
    end_time        TEXT,
    content_source  TEXT
);

CREATE TABLE IF NOT EXISTS events (
    session_id  TEXT NOT NULL REFERENCES sessions(session_id),
    seq         INTEGER NOT NULL,
    timestamp   TEXT NOT NULL,
    type        TEXT NOT NULL,
    meta        TEXT,
    extra       TEXT,
    hash        TEXT NOT NULL,
    PRIMARY KEY (session_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, seq);
`

// Store is the SQLite session journal.
type Store struct {
	db *sql.DB
}

// Open opens or creates the journal database at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("store: create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession upserts the session row. Events are journaled separately via
// AppendEvent.
func (s *Store) SaveSession(sess *session.Session) error {
	_, err := s.db.Exec(`
        INSERT INTO sessions (session_id, version, user_id, start_time, end_time, content_source)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(session_id) DO UPDATE SET
            end_time = excluded.end_time,
            content_source = excluded.content_source`,
		sess.SessionID, sess.Version, sess.UserID,
		sess.StartTime, nullable(sess.EndTime), nullable(sess.ContentSource))
	if err != nil {
		return fmt.Errorf("store: save session: %w", err)
	}
	return nil
}

// AppendEvent journals one chained event at the given sequence position.
func (s *Store) AppendEvent(sessionID string, seq int, ev *event.Event) error {
	metaJSON, err := encodeMap(ev.Meta)
	if err != nil {
		return fmt.Errorf("store: encode meta: %w", err)
	}
	extraJSON, err := encodeMap(ev.Extra)
	if err != nil {
		return fmt.Errorf("store: encode extra: %w", err)
	}

	_, err = s.db.Exec(`
        INSERT INTO events (session_id, seq, timestamp, type, meta, extra, hash)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, seq, ev.Timestamp, string(ev.Type), metaJSON, extraJSON, ev.Hash)
	if err != nil {
		return fmt.Errorf("store: append event: %w", err)
	}
	return nil
}

// LoadSession reconstructs a stored session with its events in append
// order.
func (s *Store) LoadSession(sessionID string) (*session.Session, error) {
	sess := &session.Session{}
	var endTime, contentSource sql.NullString
	err := s.db.QueryRow(`
        SELECT session_id, version, user_id, start_time, end_time, content_source
        FROM sessions WHERE session_id = ?`, sessionID).
		Scan(&sess.SessionID, &sess.Version, &sess.UserID,
			&sess.StartTime, &endTime, &contentSource)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load session: %w", err)
	}
	sess.EndTime = endTime.String
	sess.ContentSource = contentSource.String

	rows, err := s.db.Query(`
        SELECT timestamp, type, meta, extra, hash
        FROM events WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: load events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ts, typ, hash string
		var metaJSON, extraJSON sql.NullString
		if err := rows.Scan(&ts, &typ, &metaJSON, &extraJSON, &hash); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		ev := &event.Event{
			Timestamp: ts,
			Type:      event.Type(typ),
			Hash:      hash,
		}
		if ev.Meta, err = decodeMap(metaJSON); err != nil {
			return nil, fmt.Errorf("store: decode meta: %w", err)
		}
		if ev.Extra, err = decodeMap(extraJSON); err != nil {
			return nil, fmt.Errorf("store: decode extra: %w", err)
		}
		sess.Events = append(sess.Events, ev)
	}
	return sess, rows.Err()
}

// OpenSessions returns the IDs of sessions without an end_time, newest
// first by start_time.
func (s *Store) OpenSessions() ([]string, error) {
	rows, err := s.db.Query(`
        SELECT session_id FROM sessions
        WHERE end_time IS NULL OR end_time = ''
        ORDER BY start_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list open sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func encodeMap(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeMap(col sql.NullString) (map[string]any, error) {
	if !col.Valid || col.String == "" {
		return nil, nil
	}
	// UseNumber keeps stored numeric literals verbatim so a reloaded
	// session re-hashes to the same digests it was journaled with.
	dec := json.NewDecoder(strings.NewReader(col.String))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
