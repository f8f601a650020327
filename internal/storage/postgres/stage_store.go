package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

// StageStore implements storage.StageStore using PostgreSQL.
type StageStore struct {
	pool *Pool
}

// NewStageStore creates a new StageStore.
func NewStageStore(pool *Pool) *StageStore {
	return &StageStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StageStore = (*StageStore)(nil)

const stageColumns = `
	as_of_date, account_number, stage, previous_stage, target_stage,
	in_cooling, cooling_start_date, cooling_days
`

// Upsert writes the stage record for (as_of_date, account_number).
func (s *StageStore) Upsert(ctx context.Context, rec *domain.StageRecord) error {
	query := `
		INSERT INTO stage_records (` + stageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (as_of_date, account_number) DO UPDATE SET
			stage = EXCLUDED.stage,
			previous_stage = EXCLUDED.previous_stage,
			target_stage = EXCLUDED.target_stage,
			in_cooling = EXCLUDED.in_cooling,
			cooling_start_date = EXCLUDED.cooling_start_date,
			cooling_days = EXCLUDED.cooling_days
	`

	_, err := s.pool.Exec(ctx, query,
		rec.AsOfDate,
		rec.AccountNumber,
		int(rec.Stage),
		int(rec.PreviousStage),
		int(rec.TargetStage),
		rec.InCooling,
		rec.CoolingStartDate,
		rec.CoolingDays,
	)
	if err != nil {
		return fmt.Errorf("upsert stage record: %w", err)
	}
	return nil
}

// GetByAccount retrieves the record for one as-of date.
// Returns ErrNotFound if absent.
func (s *StageStore) GetByAccount(ctx context.Context, asOf time.Time, accountNumber string) (*domain.StageRecord, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM stage_records
		WHERE as_of_date = $1 AND account_number = $2
	`

	row := s.pool.QueryRow(ctx, query, asOf, accountNumber)
	rec, err := scanStageRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get stage record: %w", err)
	}
	return rec, nil
}

// GetLatestBefore retrieves the most recent record strictly before asOf
// for the account. Returns ErrNotFound when no prior record exists.
func (s *StageStore) GetLatestBefore(ctx context.Context, asOf time.Time, accountNumber string) (*domain.StageRecord, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM stage_records
		WHERE account_number = $1 AND as_of_date < $2
		ORDER BY as_of_date DESC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, accountNumber, asOf)
	rec, err := scanStageRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest stage record: %w", err)
	}
	return rec, nil
}

// GetByAsOfDate retrieves all records for a date, ordered by account.
func (s *StageStore) GetByAsOfDate(ctx context.Context, asOf time.Time) ([]*domain.StageRecord, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM stage_records
		WHERE as_of_date = $1
		ORDER BY account_number ASC
	`

	rows, err := s.pool.Query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("get stage records: %w", err)
	}
	defer rows.Close()

	var recs []*domain.StageRecord
	for rows.Next() {
		rec, err := scanStageRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stage record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage records: %w", err)
	}
	return recs, nil
}

func scanStageRecord(row pgx.Row) (*domain.StageRecord, error) {
	var rec domain.StageRecord
	var stage, previousStage, targetStage int

	err := row.Scan(
		&rec.AsOfDate,
		&rec.AccountNumber,
		&stage,
		&previousStage,
		&targetStage,
		&rec.InCooling,
		&rec.CoolingStartDate,
		&rec.CoolingDays,
	)
	if err != nil {
		return nil, err
	}

	rec.Stage = domain.Stage(stage)
	rec.PreviousStage = domain.Stage(previousStage)
	rec.TargetStage = domain.Stage(targetStage)
	return &rec, nil
}
