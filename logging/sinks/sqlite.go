package sinks

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"harvest-and-haul/server/logging"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS events (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	tick      INTEGER NOT NULL,
	time      TEXT    NOT NULL,
	type      TEXT    NOT NULL,
	severity  INTEGER NOT NULL,
	category  TEXT,
	actor_id  TEXT,
	actor_kind TEXT,
	trace_id  TEXT,
	payload   TEXT
);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
CREATE INDEX IF NOT EXISTS idx_events_trace ON events(trace_id);
`

// SQLite persists events to a local database for post-session queries
// (yield per session, abort reasons, blacklist churn).
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	payload := ""
	if event.Payload != nil {
		data, err := json.Marshal(event.Payload)
		if err != nil {
			return err
		}
		payload = string(data)
	}
	_, err := s.db.Exec(
		`INSERT INTO events (tick, time, type, severity, category, actor_id, actor_kind, trace_id, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(event.Tick),
		event.Time.UTC().Format(time.RFC3339Nano),
		string(event.Type),
		int(event.Severity),
		event.Category,
		event.Actor.ID,
		string(event.Actor.Kind),
		event.TraceID,
		payload,
	)
	return err
}

// CountByType returns how many stored events carry the given type. Intended
// for diagnostics and tests.
func (s *SQLite) CountByType(eventType logging.EventType) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, fmt.Errorf("sink closed")
	}
	row := s.db.QueryRow(`SELECT COUNT(*) FROM events WHERE type = ?`, string(eventType))
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *SQLite) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
