package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

// CashflowStore implements storage.CashflowStore using PostgreSQL.
type CashflowStore struct {
	pool *Pool
}

// NewCashflowStore creates a new CashflowStore.
func NewCashflowStore(pool *Pool) *CashflowStore {
	return &CashflowStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CashflowStore = (*CashflowStore)(nil)

// ReplaceForAccount atomically deletes and recreates the bucket sequence
// for one account and as-of date.
func (s *CashflowStore) ReplaceForAccount(ctx context.Context, asOf time.Time, accountNumber string, buckets []*domain.CashflowBucket) error {
	insert := `
		INSERT INTO cashflow_buckets (
			as_of_date, account_number, bucket_id, bucket_date,
			principal, interest, total_payment, balance, currency
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	err := s.pool.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`DELETE FROM cashflow_buckets WHERE as_of_date = $1 AND account_number = $2`,
			asOf, accountNumber,
		)
		if err != nil {
			return fmt.Errorf("delete cashflow buckets: %w", err)
		}
		for _, b := range buckets {
			_, err := tx.Exec(ctx, insert,
				b.AsOfDate,
				b.AccountNumber,
				b.BucketID,
				b.Date,
				b.Principal,
				b.Interest,
				b.TotalPayment,
				b.Balance,
				b.Currency,
			)
			if err != nil {
				if isDuplicateKeyError(err) {
					return storage.ErrDuplicateKey
				}
				return fmt.Errorf("insert cashflow bucket %d: %w", b.BucketID, err)
			}
		}
		return nil
	})
	if err != nil && isContentionError(err) {
		return storage.ErrContention
	}
	return err
}

// GetByAccount retrieves buckets ordered by bucket id ASC.
func (s *CashflowStore) GetByAccount(ctx context.Context, asOf time.Time, accountNumber string) ([]*domain.CashflowBucket, error) {
	query := `
		SELECT as_of_date, account_number, bucket_id, bucket_date,
		       principal, interest, total_payment, balance, currency
		FROM cashflow_buckets
		WHERE as_of_date = $1 AND account_number = $2
		ORDER BY bucket_id ASC
	`

	rows, err := s.pool.Query(ctx, query, asOf, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("get cashflow buckets: %w", err)
	}
	defer rows.Close()

	var buckets []*domain.CashflowBucket
	for rows.Next() {
		var b domain.CashflowBucket
		err := rows.Scan(
			&b.AsOfDate,
			&b.AccountNumber,
			&b.BucketID,
			&b.Date,
			&b.Principal,
			&b.Interest,
			&b.TotalPayment,
			&b.Balance,
			&b.Currency,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cashflow bucket: %w", err)
		}
		buckets = append(buckets, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cashflow buckets: %w", err)
	}
	return buckets, nil
}

// CountByAsOfDate returns the number of buckets stored for a date.
func (s *CashflowStore) CountByAsOfDate(ctx context.Context, asOf time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM cashflow_buckets WHERE as_of_date = $1`, asOf,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count cashflow buckets: %w", err)
	}
	return count, nil
}
