package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists runs and frames.
type Store struct {
	db   *sql.DB
	path string
}

// Run describes one conversion.
type Run struct {
	ID         string
	Input      string
	BaseName   string
	StartedAt  time.Time
	FinishedAt time.Time
	Packets    int
	Frames     int
	Errors     int
	Status     string
}

// Frame is one catalogued subtitle image.
type Frame struct {
	RunID   string
	Index   int
	StartMS uint64
	EndMS   uint64
	Width   int
	Height  int
	Image   string
}

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open creates or opens the catalog at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := retryOnBusy(ctx, func() error { return store.initSchema(ctx) }); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun records a new run in the running state.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	return s.exec(ctx,
		`INSERT INTO runs (run_id, input, base_name, started_at, status) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Input, run.BaseName, formatTime(run.StartedAt), StatusRunning,
	)
}

// RecordFrame stores one frame of a run. Re-recording an index replaces it.
func (s *Store) RecordFrame(ctx context.Context, f Frame) error {
	return s.exec(ctx,
		`INSERT OR REPLACE INTO frames (run_id, idx, start_ms, end_ms, width, height, image)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.RunID, f.Index, int64(f.StartMS), int64(f.EndMS), f.Width, f.Height, f.Image,
	)
}

// FinishRun stores the final counters. A non-nil runErr marks the run failed.
func (s *Store) FinishRun(ctx context.Context, id string, packets, frames, errs int, runErr error) error {
	status := StatusCompleted
	if runErr != nil {
		status = StatusFailed
	}
	return s.exec(ctx,
		`UPDATE runs SET finished_at = ?, packets = ?, frames = ?, errors = ?, status = ? WHERE run_id = ?`,
		formatTime(time.Now()), packets, frames, errs, status, id,
	)
}

// GetRun fetches a run by id. It returns nil when the run does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, input, base_name, started_at, finished_at, packets, frames, errors, status
         FROM runs WHERE run_id = ?`, id)
	var (
		run      Run
		started  string
		finished sql.NullString
	)
	err := row.Scan(&run.ID, &run.Input, &run.BaseName, &started, &finished,
		&run.Packets, &run.Frames, &run.Errors, &run.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	run.StartedAt = parseTime(started)
	if finished.Valid {
		run.FinishedAt = parseTime(finished.String)
	}
	return &run, nil
}

// Frames lists the frames of a run in emission order.
func (s *Store) Frames(ctx context.Context, runID string) ([]Frame, error) {
	return s.queryFrames(ctx,
		`SELECT run_id, idx, start_ms, end_ms, width, height, image FROM frames WHERE run_id = ? ORDER BY idx`,
		runID)
}

// FramesAt lists frames from any run that are displayed at ms.
func (s *Store) FramesAt(ctx context.Context, ms uint64) ([]Frame, error) {
	return s.queryFrames(ctx,
		`SELECT run_id, idx, start_ms, end_ms, width, height, image FROM frames
         WHERE start_ms <= ? AND end_ms > ? ORDER BY start_ms, run_id, idx`,
		int64(ms), int64(ms))
}

func (s *Store) queryFrames(ctx context.Context, query string, args ...any) ([]Frame, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var (
			f          Frame
			start, end int64
		)
		if err := rows.Scan(&f.RunID, &f.Index, &start, &end, &f.Width, &f.Height, &f.Image); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		f.StartMS, f.EndMS = uint64(start), uint64(end)
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	return frames, nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
