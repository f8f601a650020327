package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

// PaymentScheduleStore implements storage.PaymentScheduleStore using PostgreSQL.
type PaymentScheduleStore struct {
	pool *Pool
}

// NewPaymentScheduleStore creates a new PaymentScheduleStore.
func NewPaymentScheduleStore(pool *Pool) *PaymentScheduleStore {
	return &PaymentScheduleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PaymentScheduleStore = (*PaymentScheduleStore)(nil)

// GetByAccount retrieves schedule entries ordered by date ASC. An empty
// result means no explicit schedule exists for the account.
func (s *PaymentScheduleStore) GetByAccount(ctx context.Context, asOf time.Time, accountNumber string) ([]*domain.ScheduleEntry, error) {
	query := `
		SELECT as_of_date, account_number, payment_date, principal, interest
		FROM payment_schedules
		WHERE as_of_date = $1 AND account_number = $2
		ORDER BY payment_date ASC
	`

	rows, err := s.pool.Query(ctx, query, asOf, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("get payment schedule: %w", err)
	}
	defer rows.Close()

	var entries []*domain.ScheduleEntry
	for rows.Next() {
		var e domain.ScheduleEntry
		err := rows.Scan(&e.AsOfDate, &e.AccountNumber, &e.Date, &e.Principal, &e.Interest)
		if err != nil {
			return nil, fmt.Errorf("scan schedule entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule entries: %w", err)
	}
	return entries, nil
}

// Replace swaps the schedule for one account, used by loaders and tests.
func (s *PaymentScheduleStore) Replace(ctx context.Context, asOf time.Time, accountNumber string, entries []*domain.ScheduleEntry) error {
	insert := `
		INSERT INTO payment_schedules (as_of_date, account_number, payment_date, principal, interest)
		VALUES ($1, $2, $3, $4, $5)
	`

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`DELETE FROM payment_schedules WHERE as_of_date = $1 AND account_number = $2`,
			asOf, accountNumber,
		)
		if err != nil {
			return fmt.Errorf("delete payment schedule: %w", err)
		}
		for _, e := range entries {
			if _, err := tx.Exec(ctx, insert, e.AsOfDate, e.AccountNumber, e.Date, e.Principal, e.Interest); err != nil {
				if isDuplicateKeyError(err) {
					return storage.ErrDuplicateKey
				}
				return fmt.Errorf("insert schedule entry: %w", err)
			}
		}
		return nil
	})
}
