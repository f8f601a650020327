package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

// CalcFactStore implements storage.CalcFactStore using ClickHouse. The
// facts are written once per run after aggregation, so the write path is
// batch append only.
type CalcFactStore struct {
	conn *Conn
}

// NewCalcFactStore creates a new CalcFactStore.
func NewCalcFactStore(conn *Conn) *CalcFactStore {
	return &CalcFactStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CalcFactStore = (*CalcFactStore)(nil)

// InsertBulk appends finished calc rows for a run.
func (s *CalcFactStore) InsertBulk(ctx context.Context, calcRows []*domain.CalcRow) error {
	if len(calcRows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO calc_facts (
			as_of_date, run_id, account_number, bucket_id, bucket_date, month_offset, currency,
			cash_flow_amount,
			marginal_pd, cumulative_pd, cumulative_loss_rate, twelve_month_cum_pd,
			discount_rate, discount_factor,
			expected_cash_flow, expected_cash_flow_pv,
			cash_shortfall, cash_shortfall_pv,
			twelve_month_shortfall, twelve_month_shortfall_pv,
			ead,
			forward_expected_loss, forward_expected_loss_pv,
			twelve_month_forward_loss, twelve_month_forward_loss_pv
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range calcRows {
		err = batch.Append(
			r.AsOfDate, r.RunID, r.AccountNumber, int32(r.BucketID), r.Date, r.MonthOffset, r.Currency,
			r.CashFlowAmount,
			r.MarginalPD, r.CumulativePD, r.CumulativeLossRate, r.TwelveMonthCumPD,
			r.DiscountRate, r.DiscountFactor,
			r.ExpectedCashFlow, r.ExpectedCashFlowPV,
			r.CashShortfall, r.CashShortfallPV,
			r.TwelveMonthShortfall, r.TwelveMonthShortfallPV,
			r.EAD,
			r.ForwardExpectedLoss, r.ForwardExpectedLossPV,
			r.TwelveMonthForwardLoss, r.TwelveMonthForwardLossPV,
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

// GetByAccount retrieves the fact rows for one account and run, ordered
// by bucket id. Used by reporting drill-down.
func (s *CalcFactStore) GetByAccount(ctx context.Context, asOf time.Time, runID int64, accountNumber string) ([]*domain.CalcRow, error) {
	query := `
		SELECT as_of_date, run_id, account_number, bucket_id, bucket_date, month_offset, currency,
		       cash_flow_amount,
		       marginal_pd, cumulative_pd, cumulative_loss_rate, twelve_month_cum_pd,
		       discount_rate, discount_factor,
		       expected_cash_flow, expected_cash_flow_pv,
		       cash_shortfall, cash_shortfall_pv,
		       twelve_month_shortfall, twelve_month_shortfall_pv,
		       ead,
		       forward_expected_loss, forward_expected_loss_pv,
		       twelve_month_forward_loss, twelve_month_forward_loss_pv
		FROM calc_facts
		WHERE as_of_date = ? AND run_id = ? AND account_number = ?
		ORDER BY bucket_id ASC
	`

	rows, err := s.conn.Query(ctx, query, asOf, runID, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("query calc facts: %w", err)
	}
	defer rows.Close()

	return scanCalcFacts(rows)
}

func scanCalcFacts(rows driver.Rows) ([]*domain.CalcRow, error) {
	var facts []*domain.CalcRow

	for rows.Next() {
		var r domain.CalcRow
		var bucketID int32

		err := rows.Scan(
			&r.AsOfDate, &r.RunID, &r.AccountNumber, &bucketID, &r.Date, &r.MonthOffset, &r.Currency,
			&r.CashFlowAmount,
			&r.MarginalPD, &r.CumulativePD, &r.CumulativeLossRate, &r.TwelveMonthCumPD,
			&r.DiscountRate, &r.DiscountFactor,
			&r.ExpectedCashFlow, &r.ExpectedCashFlowPV,
			&r.CashShortfall, &r.CashShortfallPV,
			&r.TwelveMonthShortfall, &r.TwelveMonthShortfallPV,
			&r.EAD,
			&r.ForwardExpectedLoss, &r.ForwardExpectedLossPV,
			&r.TwelveMonthForwardLoss, &r.TwelveMonthForwardLossPV,
		)
		if err != nil {
			return nil, fmt.Errorf("scan calc fact: %w", err)
		}
		r.BucketID = int(bucketID)
		facts = append(facts, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calc facts: %w", err)
	}
	return facts, nil
}
