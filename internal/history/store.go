// Package history persists one row per deploy build in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/deploybuilder/internal/pipeline"
)

// ErrClosed is returned when the store is used after Close.
var ErrClosed = errors.New("history store closed")

// Record is the persisted summary of one build.
type Record struct {
	ID           int64
	BuildID      string
	StartedAt    time.Time
	Duration     time.Duration
	Outcome      string
	Reached      string
	FailedStage  string
	Error        string
	EntryCreated bool
	GitCommit    string
	Version      string
}

// FromReport converts a finished build report into a Record.
func FromReport(r *pipeline.BuildReport) Record {
	return Record{
		BuildID:      r.BuildID,
		StartedAt:    r.Start,
		Duration:     r.Duration(),
		Outcome:      string(r.Outcome),
		Reached:      string(r.Reached),
		FailedStage:  string(r.FailedStage),
		Error:        r.Error,
		EntryCreated: r.EntryCreated,
		GitCommit:    r.GitCommit,
		Version:      r.Version,
	}
}

// Store writes and reads build records.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// Open creates (or reuses) the database at path. Use ":memory:" for an
// in-memory database. Parent directories are created as needed.
func Open(path string) (*Store, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// Every new connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL UNIQUE,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		reached TEXT NOT NULL,
		failed_stage TEXT,
		error TEXT,
		entry_created INTEGER NOT NULL DEFAULT 0,
		git_commit TEXT,
		version TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append inserts rec and returns its row id.
func (s *Store) Append(ctx context.Context, rec Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	entry := 0
	if rec.EntryCreated {
		entry = 1
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (build_id, started_at, duration_ms, outcome, reached, failed_stage, error, entry_created, git_commit, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.BuildID, rec.StartedAt.UnixMilli(), rec.Duration.Milliseconds(), rec.Outcome, rec.Reached,
		rec.FailedStage, rec.Error, entry, rec.GitCommit, rec.Version,
	)
	if err != nil {
		return 0, fmt.Errorf("insert build: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit records, newest first. limit <= 0 returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	q := `SELECT id, build_id, started_at, duration_ms, outcome, reached, failed_stage, error, entry_created, git_commit, version
	      FROM builds ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var (
			rec                          Record
			startedMS, durMS             int64
			failed, errText, commit, ver sql.NullString
			entry                        int
		)
		if err := rows.Scan(&rec.ID, &rec.BuildID, &startedMS, &durMS, &rec.Outcome, &rec.Reached,
			&failed, &errText, &entry, &commit, &ver); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		rec.StartedAt = time.UnixMilli(startedMS)
		rec.Duration = time.Duration(durMS) * time.Millisecond
		rec.FailedStage = failed.String
		rec.Error = errText.String
		rec.EntryCreated = entry == 1
		rec.GitCommit = commit.String
		rec.Version = ver.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Name identifies the store in sink logs.
func (s *Store) Name() string { return "history" }

// Record appends the summary of a finished build.
func (s *Store) Record(ctx context.Context, r *pipeline.BuildReport) error {
	_, err := s.Append(ctx, FromReport(r))
	return err
}
