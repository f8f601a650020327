package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL. Run ids come
// from the runs.run_id sequence, so every Allocate sees a strictly
// larger id than any earlier run.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Allocate creates a new run for an as-of date with status RUNNING.
func (s *RunStore) Allocate(ctx context.Context, asOf time.Time) (*domain.Run, error) {
	query := `
		INSERT INTO runs (as_of_date, status)
		VALUES ($1, $2)
		RETURNING run_id, as_of_date, status, note, started_at, completed_at
	`

	row := s.pool.QueryRow(ctx, query, asOf, string(domain.RunStatusRunning))
	run, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("allocate run: %w", err)
	}
	return run, nil
}

// Complete marks a run COMPLETED or FAILED with an optional note.
func (s *RunStore) Complete(ctx context.Context, runID int64, status domain.RunStatus, note string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE runs SET status = $2, note = $3, completed_at = NOW()
		WHERE run_id = $1`,
		runID, string(status), note,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Get retrieves a run by id. Returns ErrNotFound if absent.
func (s *RunStore) Get(ctx context.Context, runID int64) (*domain.Run, error) {
	query := `
		SELECT run_id, as_of_date, status, note, started_at, completed_at
		FROM runs
		WHERE run_id = $1
	`

	row := s.pool.QueryRow(ctx, query, runID)
	run, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// GetLatestCompleted retrieves the most recent completed run for an
// as-of date. Returns ErrNotFound when none exists.
func (s *RunStore) GetLatestCompleted(ctx context.Context, asOf time.Time) (*domain.Run, error) {
	query := `
		SELECT run_id, as_of_date, status, note, started_at, completed_at
		FROM runs
		WHERE as_of_date = $1 AND status = $2
		ORDER BY run_id DESC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, asOf, string(domain.RunStatusCompleted))
	run, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest completed run: %w", err)
	}
	return run, nil
}

func scanRun(row pgx.Row) (*domain.Run, error) {
	var run domain.Run
	var status string

	err := row.Scan(
		&run.RunID,
		&run.AsOfDate,
		&status,
		&run.Note,
		&run.StartedAt,
		&run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Status = domain.RunStatus(status)
	return &run, nil
}
