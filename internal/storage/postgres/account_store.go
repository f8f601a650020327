package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

// AccountStore implements storage.AccountStore using PostgreSQL.
type AccountStore struct {
	pool *Pool
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore(pool *Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AccountStore = (*AccountStore)(nil)

const accountColumns = `
	as_of_date, account_number, customer_name, currency,
	outstanding_balance, carrying_amount, accrued_interest,
	interest_rate, effective_interest_rate, discount_rate, base_rate, margin, interest_method,
	start_date, maturity_date, last_payment_date,
	amortization_unit, day_count, bullet,
	withholding_tax_pct, management_fee_pct,
	rating_code, delinquency_band, delinquent_days,
	term_structure_id, lgd_percent, current_stage
`

// ReplaceForDate replaces the full account snapshot for an as-of date in
// one transaction.
func (s *AccountStore) ReplaceForDate(ctx context.Context, asOf time.Time, accounts []*domain.Account) error {
	insert := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
	`

	err := s.pool.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM accounts WHERE as_of_date = $1`, asOf); err != nil {
			return fmt.Errorf("delete accounts: %w", err)
		}
		for _, a := range accounts {
			_, err := tx.Exec(ctx, insert,
				a.AsOfDate,
				a.AccountNumber,
				a.CustomerName,
				a.Currency,
				a.OutstandingBalance,
				a.CarryingAmount,
				a.AccruedInterest,
				a.InterestRate,
				a.EffectiveInterestRate,
				a.DiscountRate,
				a.BaseRate,
				a.Margin,
				string(a.InterestMethod),
				a.StartDate,
				a.MaturityDate,
				a.LastPaymentDate,
				string(a.AmortizationUnit),
				string(a.DayCount),
				a.Bullet,
				a.WithholdingTaxPct,
				a.ManagementFeePct,
				a.RatingCode,
				a.DelinquencyBand,
				a.DelinquentDays,
				a.TermStructureID,
				a.LGDPercent,
				int(a.CurrentStage),
			)
			if err != nil {
				if isDuplicateKeyError(err) {
					return storage.ErrDuplicateKey
				}
				return fmt.Errorf("insert account %s: %w", a.AccountNumber, err)
			}
		}
		return nil
	})
	if err != nil && isContentionError(err) {
		return storage.ErrContention
	}
	return err
}

// GetByAsOfDate retrieves all accounts for an as-of date ordered by
// account number.
func (s *AccountStore) GetByAsOfDate(ctx context.Context, asOf time.Time) ([]*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE as_of_date = $1
		ORDER BY account_number ASC
	`

	rows, err := s.pool.Query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("get accounts by as-of date: %w", err)
	}
	defer rows.Close()

	return scanAccounts(rows)
}

// GetByNumber retrieves one account. Returns ErrNotFound if absent.
func (s *AccountStore) GetByNumber(ctx context.Context, asOf time.Time, accountNumber string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE as_of_date = $1 AND account_number = $2
	`

	row := s.pool.QueryRow(ctx, query, asOf, accountNumber)
	a, err := scanAccount(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get account by number: %w", err)
	}
	return a, nil
}

// UpdateStage writes the effective stage back onto the account snapshot.
func (s *AccountStore) UpdateStage(ctx context.Context, asOf time.Time, accountNumber string, stage domain.Stage) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET current_stage = $3 WHERE as_of_date = $1 AND account_number = $2`,
		asOf, accountNumber, int(stage),
	)
	if err != nil {
		return fmt.Errorf("update account stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanAccount scans a single row into an Account.
func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var interestMethod, amortizationUnit, dayCount string
	var stage int

	err := row.Scan(
		&a.AsOfDate,
		&a.AccountNumber,
		&a.CustomerName,
		&a.Currency,
		&a.OutstandingBalance,
		&a.CarryingAmount,
		&a.AccruedInterest,
		&a.InterestRate,
		&a.EffectiveInterestRate,
		&a.DiscountRate,
		&a.BaseRate,
		&a.Margin,
		&interestMethod,
		&a.StartDate,
		&a.MaturityDate,
		&a.LastPaymentDate,
		&amortizationUnit,
		&dayCount,
		&a.Bullet,
		&a.WithholdingTaxPct,
		&a.ManagementFeePct,
		&a.RatingCode,
		&a.DelinquencyBand,
		&a.DelinquentDays,
		&a.TermStructureID,
		&a.LGDPercent,
		&stage,
	)
	if err != nil {
		return nil, err
	}

	a.InterestMethod = domain.InterestMethod(interestMethod)
	a.AmortizationUnit = domain.AmortizationUnit(amortizationUnit)
	a.DayCount = domain.DayCount(dayCount)
	a.CurrentStage = domain.Stage(stage)
	return &a, nil
}

// scanAccounts scans multiple rows into a slice of Account.
func scanAccounts(rows pgx.Rows) ([]*domain.Account, error) {
	var accounts []*domain.Account

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}
