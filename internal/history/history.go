// Package history records button events in a SQLite database.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sweeney/button-sensor/internal/logic"
)

//go:embed schema.sql
var schemaSQL string

// Store is an append-only event log.
// Uses SQLite with WAL mode so the web server can read while the run loop writes.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
// Safe to call on an existing database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect history: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("history %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends one event.
func (s *Store) Record(ctx context.Context, e logic.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (ts_ms, button, event_type, state) VALUES (?, ?, ?, ?)`,
		e.Timestamp.UnixMilli(), e.Button, string(e.Type), string(e.State))
	if err != nil {
		return fmt.Errorf("record %s %s: %w", e.Button, e.Type, err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]logic.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts_ms, button, event_type, state FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var events []logic.Event
	for rows.Next() {
		var (
			ms                  int64
			name, typ, stateStr string
		)
		if err := rows.Scan(&ms, &name, &typ, &stateStr); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, logic.Event{
			Timestamp: time.UnixMilli(ms).UTC(),
			Button:    name,
			Type:      logic.EventType(typ),
			State:     logic.State(stateStr),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Counts returns the all-time number of each event type per button.
func (s *Store) Counts(ctx context.Context) (map[string]logic.EventCounts, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT button, event_type, COUNT(*) FROM events GROUP BY button, event_type`)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]logic.EventCounts)
	for rows.Next() {
		var (
			name, typ string
			n         int
		)
		if err := rows.Scan(&name, &typ, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		c := counts[name]
		c.Add(logic.EventType(typ), n)
		counts[name] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}
