// Package journal provides a SQLite-backed audit log of engine events.
//
// A Journal implements engine.Recorder: every recompute, cache hit,
// override mutation, and invalidation is appended under a session token,
// ordered by the engine's logical clock. The journal is write-only from the
// engine's point of view — it is never read back to restore graph state,
// only dumped for inspection (see the trace CLI command).
package journal

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/fenwick-labs/calcgraph/internal/engine"
)

//go:embed schema.sql
var schemaSQL string

// Journal appends engine events to a SQLite database.
type Journal struct {
	db      *sql.DB
	session string
}

// Open creates or opens a journal database at the given path and starts a
// new session labeled label. The database is configured with WAL mode and
// a busy timeout; the schema is applied idempotently.
func Open(path, label string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal: %w", err)
	}

	// SQLite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	session := uuid.NewString()
	_, err = db.Exec(
		`INSERT INTO sessions (id, label, created_at) VALUES (?, ?, ?)`,
		session, label, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &Journal{db: db, session: session}, nil
}

// Session returns the session token for this journal run.
func (j *Journal) Session() string {
	return j.session
}

// Record implements engine.Recorder. Failures are logged, never surfaced:
// a broken audit trail must not fail the computation it observes.
func (j *Journal) Record(ev engine.Event) {
	_, err := j.db.Exec(
		`INSERT INTO events (session_id, seq, kind, identity, value) VALUES (?, ?, ?, ?, ?)`,
		j.session, ev.Seq, string(ev.Kind), ev.Identity, ev.Value,
	)
	if err != nil {
		slog.Error("journal write failed",
			"error", err,
			"session", j.session,
			"seq", ev.Seq,
			"kind", ev.Kind,
			"identity", ev.Identity,
		)
	}
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	return nil
}
