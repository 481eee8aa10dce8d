package journal

import (
	"database/sql"
	"fmt"

	"github.com/fenwick-labs/calcgraph/internal/engine"
)

// Session summarizes one journaled engine run.
type Session struct {
	ID        string
	Label     string
	CreatedAt string
	Events    int
}

// Sessions lists all sessions in a journal database, oldest first.
func Sessions(db *sql.DB) ([]Session, error) {
	rows, err := db.Query(`
		SELECT s.id, s.label, s.created_at, COUNT(e.seq)
		FROM sessions s
		LEFT JOIN events e ON e.session_id = s.id
		GROUP BY s.id
		ORDER BY s.created_at ASC, s.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.Label, &s.CreatedAt, &s.Events); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Events returns a session's events in logical clock order.
func Events(db *sql.DB, session string) ([]engine.Event, error) {
	rows, err := db.Query(`
		SELECT seq, kind, identity, value
		FROM events
		WHERE session_id = ?
		ORDER BY seq ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []engine.Event
	for rows.Next() {
		var ev engine.Event
		var kind string
		if err := rows.Scan(&ev.Seq, &kind, &ev.Identity, &ev.Value); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = engine.EventKind(kind)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// OpenRead opens a journal database for reading only (trace dumps).
func OpenRead(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal: %w", err)
	}
	return db, nil
}
