package storage

import (
	"context"
	"time"

	"ifrs9-engine/internal/domain"
)

// AccountStore provides access to per-as-of-date account snapshots.
type AccountStore interface {
	// ReplaceForDate replaces the full account snapshot for an as-of date.
	ReplaceForDate(ctx context.Context, asOf time.Time, accounts []*domain.Account) error

	// GetByAsOfDate retrieves all accounts for an as-of date, ordered by
	// account number.
	GetByAsOfDate(ctx context.Context, asOf time.Time) ([]*domain.Account, error)

	// GetByNumber retrieves one account. Returns ErrNotFound if absent.
	GetByNumber(ctx context.Context, asOf time.Time, accountNumber string) (*domain.Account, error)

	// UpdateStage writes the effective stage back onto the account snapshot.
	UpdateStage(ctx context.Context, asOf time.Time, accountNumber string, stage domain.Stage) error
}

// CashflowStore provides access to projected cashflow buckets.
type CashflowStore interface {
	// ReplaceForAccount atomically deletes and recreates the bucket
	// sequence for one account and as-of date.
	ReplaceForAccount(ctx context.Context, asOf time.Time, accountNumber string, buckets []*domain.CashflowBucket) error

	// GetByAccount retrieves buckets ordered by bucket id ASC.
	GetByAccount(ctx context.Context, asOf time.Time, accountNumber string) ([]*domain.CashflowBucket, error)

	// CountByAsOfDate returns the number of buckets stored for a date.
	CountByAsOfDate(ctx context.Context, asOf time.Time) (int, error)
}

// PaymentScheduleStore provides optional externally supplied schedules.
type PaymentScheduleStore interface {
	// GetByAccount retrieves schedule entries ordered by date ASC.
	// An empty result means no explicit schedule exists.
	GetByAccount(ctx context.Context, asOf time.Time, accountNumber string) ([]*domain.ScheduleEntry, error)
}

// TermStructureStore provides read-only PD term-structure configuration.
type TermStructureStore interface {
	// GetByID retrieves a term structure with its annual PD inputs.
	// Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*domain.PDTermStructure, error)

	// GetAll retrieves every configured term structure.
	GetAll(ctx context.Context) ([]*domain.PDTermStructure, error)
}

// InterpolatedPDStore provides access to interpolated PD series.
type InterpolatedPDStore interface {
	// ReplaceForTermStructure atomically regenerates the series for one
	// (term structure, basis code) scope and as-of date.
	ReplaceForTermStructure(ctx context.Context, asOf time.Time, termStructureID, basisCode string, rows []*domain.InterpolatedPD) error

	// ReplaceForAccount atomically regenerates the account-level series.
	ReplaceForAccount(ctx context.Context, asOf time.Time, accountNumber string, rows []*domain.InterpolatedPD) error

	// GetForTermStructure retrieves the series ordered by bucket id ASC.
	GetForTermStructure(ctx context.Context, asOf time.Time, termStructureID, basisCode string) ([]*domain.InterpolatedPD, error)

	// GetForAccount retrieves the account-level series ordered by bucket id ASC.
	GetForAccount(ctx context.Context, asOf time.Time, accountNumber string) ([]*domain.InterpolatedPD, error)
}

// CalcStore provides access to run-scoped calc rows. Each stage reads the
// rows for an account, fills its own field subset and replaces the set in
// a single all-or-nothing write.
type CalcStore interface {
	// ReplaceForAccount atomically replaces the calc rows for one
	// (run, account) scope.
	ReplaceForAccount(ctx context.Context, asOf time.Time, runID int64, accountNumber string, rows []*domain.CalcRow) error

	// GetByAccount retrieves rows ordered by bucket id ASC.
	GetByAccount(ctx context.Context, asOf time.Time, runID int64, accountNumber string) ([]*domain.CalcRow, error)

	// GetByRun retrieves all rows for a run, ordered by account then bucket.
	GetByRun(ctx context.Context, asOf time.Time, runID int64) ([]*domain.CalcRow, error)

	// CountByRun returns the number of calc rows for a run.
	CountByRun(ctx context.Context, asOf time.Time, runID int64) (int, error)
}

// StageStore provides access to stage records.
type StageStore interface {
	// Upsert writes the stage record for (as_of_date, account_number).
	Upsert(ctx context.Context, rec *domain.StageRecord) error

	// GetByAccount retrieves the record for one as-of date.
	// Returns ErrNotFound if absent.
	GetByAccount(ctx context.Context, asOf time.Time, accountNumber string) (*domain.StageRecord, error)

	// GetLatestBefore retrieves the most recent record strictly before
	// asOf for the account. Returns ErrNotFound when no prior record exists.
	GetLatestBefore(ctx context.Context, asOf time.Time, accountNumber string) (*domain.StageRecord, error)

	// GetByAsOfDate retrieves all records for a date, ordered by account.
	GetByAsOfDate(ctx context.Context, asOf time.Time) ([]*domain.StageRecord, error)
}

// StageConfigStore provides read-only stage mapping configuration.
type StageConfigStore interface {
	// GetRatingMappings retrieves all rating-to-stage mappings.
	GetRatingMappings(ctx context.Context) ([]*domain.RatingStageMapping, error)

	// GetDelinquencyThresholds retrieves all delinquent-days thresholds.
	GetDelinquencyThresholds(ctx context.Context) ([]*domain.DelinquencyThreshold, error)

	// GetCoolingDurations retrieves the cooling duration per amortization unit.
	GetCoolingDurations(ctx context.Context) ([]*domain.CoolingDuration, error)
}

// RunStore allocates and tracks pipeline runs.
type RunStore interface {
	// Allocate creates a new run for an as-of date with a monotonically
	// increasing run id and status RUNNING.
	Allocate(ctx context.Context, asOf time.Time) (*domain.Run, error)

	// Complete marks a run COMPLETED or FAILED with an optional note.
	Complete(ctx context.Context, runID int64, status domain.RunStatus, note string) error

	// Get retrieves a run by id. Returns ErrNotFound if absent.
	Get(ctx context.Context, runID int64) (*domain.Run, error)

	// GetLatestCompleted retrieves the most recent completed run for an
	// as-of date. Returns ErrNotFound when none exists.
	GetLatestCompleted(ctx context.Context, asOf time.Time) (*domain.Run, error)
}

// ECLResultStore holds the per-account reporting facts. Append-only.
type ECLResultStore interface {
	// InsertBulk adds results for a run. Fails the entire batch on any
	// duplicate (as_of_date, run_id, account_number).
	InsertBulk(ctx context.Context, results []*domain.ECLResult) error

	// GetByRun retrieves results ordered by account number.
	GetByRun(ctx context.Context, asOf time.Time, runID int64) ([]*domain.ECLResult, error)
}

// CalcFactStore holds the finished per-bucket calc snapshot for reporting
// drill-down. Append-only; written once per run after aggregation.
type CalcFactStore interface {
	// InsertBulk appends finished calc rows for a run.
	InsertBulk(ctx context.Context, rows []*domain.CalcRow) error
}
