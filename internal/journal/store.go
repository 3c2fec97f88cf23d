// Package journal keeps a history of build passes in SQLite.
package journal

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/packager/internal/foundation/errors"
	"git.home.luguber.info/inful/packager/internal/pipeline"
)

// Trigger records what started a build pass.
type Trigger string

const (
	TriggerOneShot Trigger = "oneshot"
	TriggerInitial Trigger = "initial"
	TriggerConfig  Trigger = "config"
	TriggerFiles   Trigger = "files"
)

// Entry is one recorded build pass.
type Entry struct {
	ID          int64
	RunID       string
	BuildID     string
	Trigger     Trigger
	StartedAt   time.Time
	Duration    time.Duration
	Copied      int
	Skipped     int
	Substituted int
	Compressed  bool
	Error       string
}

// Succeeded reports whether the pass finished without error.
func (e Entry) Succeeded() bool { return e.Error == "" }

// FromResult converts a pipeline result. All entries of one watch tick or
// one invocation share runID.
func FromResult(runID string, trigger Trigger, res pipeline.Result) Entry {
	e := Entry{
		RunID:       runID,
		BuildID:     res.BuildID,
		Trigger:     trigger,
		StartedAt:   time.Now().Add(-res.Duration),
		Duration:    res.Duration,
		Copied:      res.Copied,
		Skipped:     res.Skipped,
		Substituted: res.Substituted,
		Compressed:  res.Compressed,
	}
	if res.Err != nil {
		e.Error = res.Err.Error()
	}
	return e
}

// NewRunID returns a fresh identifier for a group of passes.
func NewRunID() string { return uuid.NewString() }

// Store persists entries.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens (creating if needed) the journal at path. Use ":memory:"
// for an in-memory journal.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ferrors.RuntimeError("could not open journal database").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	// Every pooled connection to ":memory:" would see its own database.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, ferrors.RuntimeError("failed to initialize journal schema").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS passes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		build_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		copied INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		substituted INTEGER NOT NULL,
		compressed INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_passes_build_id ON passes(build_id);
	CREATE INDEX IF NOT EXISTS idx_passes_run_id ON passes(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append records one pass.
func (s *Store) Append(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := e.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	compressed := 0
	if e.Compressed {
		compressed = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO passes (run_id, build_id, reason, started_at, duration_ms, copied, skipped, substituted, compressed, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.BuildID, string(e.Trigger), started.UnixMilli(), e.Duration.Milliseconds(),
		e.Copied, e.Skipped, e.Substituted, compressed, e.Error,
	)
	if err != nil {
		return ferrors.RuntimeError("failed to append journal entry").
			WithCause(err).
			WithContext("build", e.BuildID).
			Build()
	}
	return nil
}

// Recent returns up to limit entries, newest first. An empty buildID matches
// every build.
func (s *Store) Recent(ctx context.Context, buildID string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		return nil, nil
	}
	query := `SELECT id, run_id, build_id, reason, started_at, duration_ms, copied, skipped, substituted, compressed, error
		FROM passes`
	args := []any{}
	if buildID != "" {
		query += " WHERE build_id = ?"
		args = append(args, buildID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ferrors.RuntimeError("failed to query journal").WithCause(err).Build()
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			trigger    string
			startedMs  int64
			durationMs int64
			compressed int
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.BuildID, &trigger, &startedMs, &durationMs,
			&e.Copied, &e.Skipped, &e.Substituted, &compressed, &e.Error); err != nil {
			return nil, ferrors.RuntimeError("failed to scan journal row").WithCause(err).Build()
		}
		e.Trigger = Trigger(trigger)
		e.StartedAt = time.UnixMilli(startedMs)
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.Compressed = compressed == 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.RuntimeError("failed to iterate journal rows").WithCause(err).Build()
	}
	return entries, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
