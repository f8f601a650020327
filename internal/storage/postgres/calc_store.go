package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

// CalcStore implements storage.CalcStore using PostgreSQL.
type CalcStore struct {
	pool *Pool
}

// NewCalcStore creates a new CalcStore.
func NewCalcStore(pool *Pool) *CalcStore {
	return &CalcStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CalcStore = (*CalcStore)(nil)

const calcColumns = `
	as_of_date, run_id, account_number, bucket_id, bucket_date, month_offset, currency,
	cash_flow_amount,
	marginal_pd, cumulative_pd, cumulative_loss_rate, twelve_month_cum_pd, within_twelve_months,
	discount_rate, discount_factor,
	expected_cash_flow, expected_cash_flow_pv,
	twelve_month_expected_cf, twelve_month_expected_cf_pv,
	cash_shortfall, cash_shortfall_pv,
	twelve_month_shortfall, twelve_month_shortfall_pv,
	ead,
	forward_expected_loss, forward_expected_loss_pv,
	twelve_month_forward_loss, twelve_month_forward_loss_pv
`

// ReplaceForAccount atomically replaces the calc rows for one
// (run, account) scope. Called by every pipeline stage after it fills its
// field subset.
func (s *CalcStore) ReplaceForAccount(ctx context.Context, asOf time.Time, runID int64, accountNumber string, calcRows []*domain.CalcRow) error {
	insert := `
		INSERT INTO calc_rows (` + calcColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
	`

	err := s.pool.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			DELETE FROM calc_rows
			WHERE as_of_date = $1 AND run_id = $2 AND account_number = $3`,
			asOf, runID, accountNumber,
		)
		if err != nil {
			return fmt.Errorf("delete calc rows: %w", err)
		}
		for _, r := range calcRows {
			_, err := tx.Exec(ctx, insert,
				r.AsOfDate, r.RunID, r.AccountNumber, r.BucketID, r.Date, r.MonthOffset, r.Currency,
				r.CashFlowAmount,
				r.MarginalPD, r.CumulativePD, r.CumulativeLossRate, r.TwelveMonthCumPD, r.WithinTwelveMonths,
				r.DiscountRate, r.DiscountFactor,
				r.ExpectedCashFlow, r.ExpectedCashFlowPV,
				r.TwelveMonthExpectedCF, r.TwelveMonthExpectedCFPV,
				r.CashShortfall, r.CashShortfallPV,
				r.TwelveMonthShortfall, r.TwelveMonthShortfallPV,
				r.EAD,
				r.ForwardExpectedLoss, r.ForwardExpectedLossPV,
				r.TwelveMonthForwardLoss, r.TwelveMonthForwardLossPV,
			)
			if err != nil {
				if isDuplicateKeyError(err) {
					return storage.ErrDuplicateKey
				}
				return fmt.Errorf("insert calc row bucket %d: %w", r.BucketID, err)
			}
		}
		return nil
	})
	if err != nil && isContentionError(err) {
		return storage.ErrContention
	}
	return err
}

// GetByAccount retrieves rows ordered by bucket id ASC.
func (s *CalcStore) GetByAccount(ctx context.Context, asOf time.Time, runID int64, accountNumber string) ([]*domain.CalcRow, error) {
	query := `
		SELECT ` + calcColumns + `
		FROM calc_rows
		WHERE as_of_date = $1 AND run_id = $2 AND account_number = $3
		ORDER BY bucket_id ASC
	`

	rows, err := s.pool.Query(ctx, query, asOf, runID, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("get calc rows by account: %w", err)
	}
	defer rows.Close()

	return scanCalcRows(rows)
}

// GetByRun retrieves all rows for a run, ordered by account then bucket.
func (s *CalcStore) GetByRun(ctx context.Context, asOf time.Time, runID int64) ([]*domain.CalcRow, error) {
	query := `
		SELECT ` + calcColumns + `
		FROM calc_rows
		WHERE as_of_date = $1 AND run_id = $2
		ORDER BY account_number ASC, bucket_id ASC
	`

	rows, err := s.pool.Query(ctx, query, asOf, runID)
	if err != nil {
		return nil, fmt.Errorf("get calc rows by run: %w", err)
	}
	defer rows.Close()

	return scanCalcRows(rows)
}

// CountByRun returns the number of calc rows for a run.
func (s *CalcStore) CountByRun(ctx context.Context, asOf time.Time, runID int64) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM calc_rows WHERE as_of_date = $1 AND run_id = $2`,
		asOf, runID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count calc rows: %w", err)
	}
	return count, nil
}

func scanCalcRows(rows pgx.Rows) ([]*domain.CalcRow, error) {
	var calcRows []*domain.CalcRow

	for rows.Next() {
		var r domain.CalcRow
		err := rows.Scan(
			&r.AsOfDate, &r.RunID, &r.AccountNumber, &r.BucketID, &r.Date, &r.MonthOffset, &r.Currency,
			&r.CashFlowAmount,
			&r.MarginalPD, &r.CumulativePD, &r.CumulativeLossRate, &r.TwelveMonthCumPD, &r.WithinTwelveMonths,
			&r.DiscountRate, &r.DiscountFactor,
			&r.ExpectedCashFlow, &r.ExpectedCashFlowPV,
			&r.TwelveMonthExpectedCF, &r.TwelveMonthExpectedCFPV,
			&r.CashShortfall, &r.CashShortfallPV,
			&r.TwelveMonthShortfall, &r.TwelveMonthShortfallPV,
			&r.EAD,
			&r.ForwardExpectedLoss, &r.ForwardExpectedLossPV,
			&r.TwelveMonthForwardLoss, &r.TwelveMonthForwardLossPV,
		)
		if err != nil {
			return nil, fmt.Errorf("scan calc row: %w", err)
		}
		calcRows = append(calcRows, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calc rows: %w", err)
	}
	return calcRows, nil
}
