package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/phrazzld/super-wire/internal/config"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

// InterruptedReason is recorded on runs that were pending when the process stopped.
const InterruptedReason = "process stopped before the run finished"

// ErrNotFound is returned when a run id has no row.
var ErrNotFound = errors.New("run not found")

// Run is one ledger row.
type Run struct {
	ID           string
	Status       Status
	Stage        string
	ErrorMessage string
	ArtifactKey  string
	ArtifactURL  string
	StoryCount   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store persists runs in SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open connects to <state_dir>/ledger.db, creating the schema on first use.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.StateDir, "ledger.db"))
}

// OpenPath opens the ledger at an explicit database path.
func OpenPath(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// Begin inserts a pending row for runID at the given stage.
func (s *Store) Begin(ctx context.Context, runID, stage string) error {
	ts := s.timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, status, stage, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		runID, StatusPending, stage, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}
	return nil
}

// Advance records the stage a pending run has entered.
func (s *Store) Advance(ctx context.Context, runID, stage string) error {
	return s.update(ctx, runID,
		`UPDATE runs SET stage = ?, updated_at = ? WHERE run_id = ?`,
		stage, s.timestamp(), runID)
}

// SetStoryCount records how many stories the run covers.
func (s *Store) SetStoryCount(ctx context.Context, runID string, count int) error {
	return s.update(ctx, runID,
		`UPDATE runs SET story_count = ?, updated_at = ? WHERE run_id = ?`,
		count, s.timestamp(), runID)
}

// Published marks the run as published with its durable key and URL.
func (s *Store) Published(ctx context.Context, runID, stage, key, url string) error {
	return s.update(ctx, runID,
		`UPDATE runs SET status = ?, stage = ?, artifact_key = ?, artifact_url = ?, updated_at = ? WHERE run_id = ?`,
		StatusPublished, stage, key, url, s.timestamp(), runID)
}

// Note attaches a message to a run without changing its status. Cleanup
// failures after publish are recorded this way.
func (s *Store) Note(ctx context.Context, runID, stage, message string) error {
	return s.update(ctx, runID,
		`UPDATE runs SET stage = ?, error_message = ?, updated_at = ? WHERE run_id = ?`,
		stage, nullableString(message), s.timestamp(), runID)
}

// Failed marks the run as failed at stage with message.
func (s *Store) Failed(ctx context.Context, runID, stage, message string) error {
	return s.update(ctx, runID,
		`UPDATE runs SET status = ?, stage = ?, error_message = ?, updated_at = ? WHERE run_id = ?`,
		StatusFailed, stage, nullableString(message), s.timestamp(), runID)
}

// FailInterrupted marks every pending run as failed. Called at startup so a
// crash mid-run does not leave rows pending forever.
func (s *Store) FailInterrupted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error_message = ?, updated_at = ? WHERE status = ?`,
		StatusFailed, InterruptedReason, s.timestamp(), StatusPending)
	if err != nil {
		return 0, fmt.Errorf("fail interrupted runs: %w", err)
	}
	return res.RowsAffected()
}

// Get fetches a run by id.
func (s *Store) Get(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE run_id = ?", runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// List returns runs newest first, optionally filtered by status. A limit
// <= 0 returns every row.
func (s *Store) List(ctx context.Context, limit int, statuses ...Status) ([]*Run, error) {
	query := "SELECT " + runColumns + " FROM runs"
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY created_at DESC, run_id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) update(ctx context.Context, runID, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return nil
}
