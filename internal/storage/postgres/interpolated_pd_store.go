package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

// InterpolatedPDStore implements storage.InterpolatedPDStore using PostgreSQL.
type InterpolatedPDStore struct {
	pool *Pool
}

// NewInterpolatedPDStore creates a new InterpolatedPDStore.
func NewInterpolatedPDStore(pool *Pool) *InterpolatedPDStore {
	return &InterpolatedPDStore{pool: pool}
}

// Compile-time interface check.
var _ storage.InterpolatedPDStore = (*InterpolatedPDStore)(nil)

const interpolatedPDInsert = `
	INSERT INTO interpolated_pds (
		as_of_date, pd_level, term_structure_id, basis_code, account_number,
		bucket_id, marginal_pd, cumulative_pd
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// ReplaceForTermStructure atomically regenerates the series for one
// (term structure, basis code) scope and as-of date.
func (s *InterpolatedPDStore) ReplaceForTermStructure(ctx context.Context, asOf time.Time, termStructureID, basisCode string, pds []*domain.InterpolatedPD) error {
	err := s.pool.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			DELETE FROM interpolated_pds
			WHERE as_of_date = $1 AND pd_level = $2 AND term_structure_id = $3 AND basis_code = $4`,
			asOf, string(domain.PDLevelTermStructure), termStructureID, basisCode,
		)
		if err != nil {
			return fmt.Errorf("delete interpolated pds: %w", err)
		}
		return insertInterpolatedPDs(ctx, tx, pds)
	})
	if err != nil && isContentionError(err) {
		return storage.ErrContention
	}
	return err
}

// ReplaceForAccount atomically regenerates the account-level series.
func (s *InterpolatedPDStore) ReplaceForAccount(ctx context.Context, asOf time.Time, accountNumber string, pds []*domain.InterpolatedPD) error {
	err := s.pool.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			DELETE FROM interpolated_pds
			WHERE as_of_date = $1 AND pd_level = $2 AND account_number = $3`,
			asOf, string(domain.PDLevelAccount), accountNumber,
		)
		if err != nil {
			return fmt.Errorf("delete interpolated pds: %w", err)
		}
		return insertInterpolatedPDs(ctx, tx, pds)
	})
	if err != nil && isContentionError(err) {
		return storage.ErrContention
	}
	return err
}

// GetForTermStructure retrieves the series ordered by bucket id ASC.
func (s *InterpolatedPDStore) GetForTermStructure(ctx context.Context, asOf time.Time, termStructureID, basisCode string) ([]*domain.InterpolatedPD, error) {
	query := `
		SELECT as_of_date, pd_level, term_structure_id, basis_code, account_number,
		       bucket_id, marginal_pd, cumulative_pd
		FROM interpolated_pds
		WHERE as_of_date = $1 AND pd_level = $2 AND term_structure_id = $3 AND basis_code = $4
		ORDER BY bucket_id ASC
	`

	rows, err := s.pool.Query(ctx, query, asOf, string(domain.PDLevelTermStructure), termStructureID, basisCode)
	if err != nil {
		return nil, fmt.Errorf("get interpolated pds: %w", err)
	}
	defer rows.Close()

	return scanInterpolatedPDs(rows)
}

// GetForAccount retrieves the account-level series ordered by bucket id ASC.
func (s *InterpolatedPDStore) GetForAccount(ctx context.Context, asOf time.Time, accountNumber string) ([]*domain.InterpolatedPD, error) {
	query := `
		SELECT as_of_date, pd_level, term_structure_id, basis_code, account_number,
		       bucket_id, marginal_pd, cumulative_pd
		FROM interpolated_pds
		WHERE as_of_date = $1 AND pd_level = $2 AND account_number = $3
		ORDER BY bucket_id ASC
	`

	rows, err := s.pool.Query(ctx, query, asOf, string(domain.PDLevelAccount), accountNumber)
	if err != nil {
		return nil, fmt.Errorf("get interpolated pds: %w", err)
	}
	defer rows.Close()

	return scanInterpolatedPDs(rows)
}

func insertInterpolatedPDs(ctx context.Context, tx pgx.Tx, pds []*domain.InterpolatedPD) error {
	for _, p := range pds {
		_, err := tx.Exec(ctx, interpolatedPDInsert,
			p.AsOfDate,
			string(p.Level),
			p.TermStructureID,
			p.BasisCode,
			p.AccountNumber,
			p.BucketID,
			p.MarginalPD,
			p.CumulativePD,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert interpolated pd bucket %d: %w", p.BucketID, err)
		}
	}
	return nil
}

func scanInterpolatedPDs(rows pgx.Rows) ([]*domain.InterpolatedPD, error) {
	var pds []*domain.InterpolatedPD

	for rows.Next() {
		var p domain.InterpolatedPD
		var level string
		err := rows.Scan(
			&p.AsOfDate,
			&level,
			&p.TermStructureID,
			&p.BasisCode,
			&p.AccountNumber,
			&p.BucketID,
			&p.MarginalPD,
			&p.CumulativePD,
		)
		if err != nil {
			return nil, fmt.Errorf("scan interpolated pd: %w", err)
		}
		p.Level = domain.PDLevel(level)
		pds = append(pds, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interpolated pds: %w", err)
	}
	return pds, nil
}
