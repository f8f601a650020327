package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

// TermStructureStore implements storage.TermStructureStore using PostgreSQL.
type TermStructureStore struct {
	pool *Pool
}

// NewTermStructureStore creates a new TermStructureStore.
func NewTermStructureStore(pool *Pool) *TermStructureStore {
	return &TermStructureStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TermStructureStore = (*TermStructureStore)(nil)

// GetByID retrieves a term structure with its annual PD inputs.
// Returns ErrNotFound if absent.
func (s *TermStructureStore) GetByID(ctx context.Context, id string) (*domain.PDTermStructure, error) {
	query := `
		SELECT term_structure_id, name, kind, granularity, horizon_years
		FROM pd_term_structures
		WHERE term_structure_id = $1
	`

	row := s.pool.QueryRow(ctx, query, id)
	ts, err := scanTermStructure(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get term structure by id: %w", err)
	}

	if err := s.loadInputs(ctx, ts); err != nil {
		return nil, err
	}
	return ts, nil
}

// GetAll retrieves every configured term structure with inputs.
func (s *TermStructureStore) GetAll(ctx context.Context) ([]*domain.PDTermStructure, error) {
	query := `
		SELECT term_structure_id, name, kind, granularity, horizon_years
		FROM pd_term_structures
		ORDER BY term_structure_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get term structures: %w", err)
	}
	defer rows.Close()

	var structures []*domain.PDTermStructure
	for rows.Next() {
		ts, err := scanTermStructure(rows)
		if err != nil {
			return nil, fmt.Errorf("scan term structure: %w", err)
		}
		structures = append(structures, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate term structures: %w", err)
	}

	for _, ts := range structures {
		if err := s.loadInputs(ctx, ts); err != nil {
			return nil, err
		}
	}
	return structures, nil
}

// Put inserts or replaces a term structure and its inputs, used by
// loaders and tests.
func (s *TermStructureStore) Put(ctx context.Context, ts *domain.PDTermStructure) error {
	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `DELETE FROM pd_inputs WHERE term_structure_id = $1`, ts.ID)
		if err != nil {
			return fmt.Errorf("delete pd inputs: %w", err)
		}
		_, err = tx.Exec(ctx, `DELETE FROM pd_term_structures WHERE term_structure_id = $1`, ts.ID)
		if err != nil {
			return fmt.Errorf("delete term structure: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO pd_term_structures (term_structure_id, name, kind, granularity, horizon_years)
			VALUES ($1, $2, $3, $4, $5)`,
			ts.ID, ts.Name, string(ts.Kind), string(ts.Granularity), ts.HorizonYears,
		)
		if err != nil {
			return fmt.Errorf("insert term structure: %w", err)
		}

		for _, in := range ts.Inputs {
			_, err := tx.Exec(ctx, `
				INSERT INTO pd_inputs (term_structure_id, basis_code, annual_pd)
				VALUES ($1, $2, $3)`,
				ts.ID, in.BasisCode, in.AnnualPD,
			)
			if err != nil {
				return fmt.Errorf("insert pd input %s: %w", in.BasisCode, err)
			}
		}
		return nil
	})
}

func (s *TermStructureStore) loadInputs(ctx context.Context, ts *domain.PDTermStructure) error {
	rows, err := s.pool.Query(ctx, `
		SELECT term_structure_id, basis_code, annual_pd
		FROM pd_inputs
		WHERE term_structure_id = $1
		ORDER BY basis_code ASC`,
		ts.ID,
	)
	if err != nil {
		return fmt.Errorf("get pd inputs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var in domain.PDInput
		if err := rows.Scan(&in.TermStructureID, &in.BasisCode, &in.AnnualPD); err != nil {
			return fmt.Errorf("scan pd input: %w", err)
		}
		ts.Inputs = append(ts.Inputs, in)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate pd inputs: %w", err)
	}
	return nil
}

func scanTermStructure(row pgx.Row) (*domain.PDTermStructure, error) {
	var ts domain.PDTermStructure
	var kind, granularity string

	err := row.Scan(&ts.ID, &ts.Name, &kind, &granularity, &ts.HorizonYears)
	if err != nil {
		return nil, err
	}

	ts.Kind = domain.TermStructureKind(kind)
	ts.Granularity = domain.Granularity(granularity)
	return &ts, nil
}
