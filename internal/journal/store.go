package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"coopsched/internal/logging"
	"coopsched/internal/sched"

	_ "modernc.org/sqlite"
)

// Run is one recorded scheduler run.
type Run struct {
	ID         string
	Policy     string
	Tasks      int
	Config     string // YAML of the effective configuration
	Reason     string // why the run ended
	StartedAt  time.Time
	FinishedAt *time.Time
	Events     int
}

// Event is a persisted status event.
type Event struct {
	Seq      int64
	RunID    string
	At       time.Time
	Kind     string
	Slot     int
	TaskID   uint32
	State    string
	Priority uint32
	ExecTime uint64
	Tick     uint64
	Detail   string
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// SQLiteStore records runs and their events in SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// one connection keeps ":memory:" databases shared and writes ordered
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logging.Component(logger, "journal"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// CreateRun inserts a run row.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", run.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, policy, tasks, config, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Policy, run.Tasks, run.Config, run.StartedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun records why and when a run ended.
func (s *SQLiteStore) FinishRun(ctx context.Context, id, reason string, at time.Time) error {
	s.logger.Debug("sql", "op", "update", "table", "runs", "id", id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET reason = ?, finished_at = ? WHERE id = ?`,
		reason, at.UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// AppendEvent stores one status event for a run.
func (s *SQLiteStore) AppendEvent(ctx context.Context, runID string, ev sched.StatusEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (run_id, at, kind, slot, task_id, state, priority, exec_time, tick, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		ev.Time.UTC().Format(timeLayout),
		ev.Kind.String(),
		ev.Slot,
		int64(ev.TaskID),
		ev.State.String(),
		int64(ev.Priority),
		int64(ev.ExecTime),
		int64(ev.Tick),
		ev.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert event for %s: %w", runID, err)
	}
	return nil
}

// GetRun loads one run with its event count.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, runSelect+` WHERE r.id = ? GROUP BY r.id`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return run, err
}

// ListRuns returns runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, runSelect+` GROUP BY r.id ORDER BY r.started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListEvents returns a run's events in the order they were raised.
func (s *SQLiteStore) ListEvents(ctx context.Context, runID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, run_id, at, kind, slot, task_id, state, priority, exec_time, tick, detail
		 FROM events WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list events for %s: %w", runID, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev Event
			at string
		)
		if err := rows.Scan(&ev.Seq, &ev.RunID, &at, &ev.Kind, &ev.Slot, &ev.TaskID,
			&ev.State, &ev.Priority, &ev.ExecTime, &ev.Tick, &ev.Detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.At, _ = time.Parse(timeLayout, at)
		events = append(events, ev)
	}
	return events, rows.Err()
}

const runSelect = `SELECT r.id, r.policy, r.tasks, r.config, r.reason, r.started_at, r.finished_at, COUNT(e.seq)
	FROM runs r LEFT JOIN events e ON e.run_id = r.id`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run      Run
		started  string
		finished sql.NullString
	)
	if err := sc.Scan(&run.ID, &run.Policy, &run.Tasks, &run.Config, &run.Reason, &started, &finished, &run.Events); err != nil {
		return nil, err
	}
	run.StartedAt, _ = time.Parse(timeLayout, started)
	if finished.Valid {
		t, err := time.Parse(timeLayout, finished.String)
		if err == nil {
			run.FinishedAt = &t
		}
	}
	return &run, nil
}
