package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

// ECLResultStore implements storage.ECLResultStore using ClickHouse.
type ECLResultStore struct {
	conn *Conn
}

// NewECLResultStore creates a new ECLResultStore.
func NewECLResultStore(conn *Conn) *ECLResultStore {
	return &ECLResultStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ECLResultStore = (*ECLResultStore)(nil)

// InsertBulk adds results for a run. Fails the entire batch on any
// duplicate (as_of_date, run_id, account_number). MergeTree does not
// enforce uniqueness, so duplicates are checked explicitly before insert.
func (s *ECLResultStore) InsertBulk(ctx context.Context, results []*domain.ECLResult) error {
	if len(results) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		asOf          time.Time
		runID         int64
		accountNumber string
	}
	seen := make(map[key]struct{})
	for _, r := range results {
		k := key{r.AsOfDate, r.RunID, r.AccountNumber}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, r := range results {
		exists, err := s.exists(ctx, r.AsOfDate, r.RunID, r.AccountNumber)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ecl_results (
			as_of_date, run_id, account_number, currency, reporting_currency,
			ecl_12, ecl_lifetime, ecl_12_reporting, ecl_lifetime_reporting,
			ead, lifetime_pd, twelve_month_pd, lgd, methodology, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range results {
		err = batch.Append(
			r.AsOfDate, r.RunID, r.AccountNumber, r.Currency, r.ReportingCurrency,
			r.ECL12, r.ECLLifetime, r.ECL12Reporting, r.ECLLifetimeReporting,
			r.EAD, r.LifetimePD, r.TwelveMonthPD, r.LGD, string(r.Methodology), r.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRun retrieves results ordered by account number.
func (s *ECLResultStore) GetByRun(ctx context.Context, asOf time.Time, runID int64) ([]*domain.ECLResult, error) {
	query := `
		SELECT as_of_date, run_id, account_number, currency, reporting_currency,
		       ecl_12, ecl_lifetime, ecl_12_reporting, ecl_lifetime_reporting,
		       ead, lifetime_pd, twelve_month_pd, lgd, methodology, created_at
		FROM ecl_results
		WHERE as_of_date = ? AND run_id = ?
		ORDER BY account_number ASC
	`

	rows, err := s.conn.Query(ctx, query, asOf, runID)
	if err != nil {
		return nil, fmt.Errorf("query ecl results: %w", err)
	}
	defer rows.Close()

	return scanECLResults(rows)
}

// exists checks if a result with the given key exists.
func (s *ECLResultStore) exists(ctx context.Context, asOf time.Time, runID int64, accountNumber string) (bool, error) {
	query := `
		SELECT count(*) FROM ecl_results
		WHERE as_of_date = ? AND run_id = ? AND account_number = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, asOf, runID, accountNumber).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanECLResults(rows driver.Rows) ([]*domain.ECLResult, error) {
	var results []*domain.ECLResult

	for rows.Next() {
		var r domain.ECLResult
		var methodology string

		err := rows.Scan(
			&r.AsOfDate, &r.RunID, &r.AccountNumber, &r.Currency, &r.ReportingCurrency,
			&r.ECL12, &r.ECLLifetime, &r.ECL12Reporting, &r.ECLLifetimeReporting,
			&r.EAD, &r.LifetimePD, &r.TwelveMonthPD, &r.LGD, &methodology, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ecl result: %w", err)
		}
		r.Methodology = domain.Methodology(methodology)
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ecl results: %w", err)
	}
	return results, nil
}
