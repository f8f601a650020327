package postgres

import (
	"context"
	"fmt"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

// StageConfigStore implements storage.StageConfigStore using PostgreSQL.
// The mapping tables are reference data maintained outside the engine.
type StageConfigStore struct {
	pool *Pool
}

// NewStageConfigStore creates a new StageConfigStore.
func NewStageConfigStore(pool *Pool) *StageConfigStore {
	return &StageConfigStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StageConfigStore = (*StageConfigStore)(nil)

// GetRatingMappings retrieves all rating-to-stage mappings.
func (s *StageConfigStore) GetRatingMappings(ctx context.Context) ([]*domain.RatingStageMapping, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT rating_code, stage FROM rating_stage_mappings ORDER BY rating_code ASC`)
	if err != nil {
		return nil, fmt.Errorf("get rating mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*domain.RatingStageMapping
	for rows.Next() {
		var m domain.RatingStageMapping
		var stage int
		if err := rows.Scan(&m.RatingCode, &stage); err != nil {
			return nil, fmt.Errorf("scan rating mapping: %w", err)
		}
		m.Stage = domain.Stage(stage)
		mappings = append(mappings, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating mappings: %w", err)
	}
	return mappings, nil
}

// GetDelinquencyThresholds retrieves all delinquent-days thresholds.
func (s *StageConfigStore) GetDelinquencyThresholds(ctx context.Context) ([]*domain.DelinquencyThreshold, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT amortization_unit, min_days, max_days, stage
		FROM delinquency_thresholds
		ORDER BY amortization_unit ASC, min_days ASC`)
	if err != nil {
		return nil, fmt.Errorf("get delinquency thresholds: %w", err)
	}
	defer rows.Close()

	var thresholds []*domain.DelinquencyThreshold
	for rows.Next() {
		var t domain.DelinquencyThreshold
		var unit string
		var stage int
		if err := rows.Scan(&unit, &t.MinDays, &t.MaxDays, &stage); err != nil {
			return nil, fmt.Errorf("scan delinquency threshold: %w", err)
		}
		t.Unit = domain.AmortizationUnit(unit)
		t.Stage = domain.Stage(stage)
		thresholds = append(thresholds, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delinquency thresholds: %w", err)
	}
	return thresholds, nil
}

// GetCoolingDurations retrieves the cooling duration per amortization unit.
func (s *StageConfigStore) GetCoolingDurations(ctx context.Context) ([]*domain.CoolingDuration, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT amortization_unit, days FROM cooling_durations ORDER BY amortization_unit ASC`)
	if err != nil {
		return nil, fmt.Errorf("get cooling durations: %w", err)
	}
	defer rows.Close()

	var durations []*domain.CoolingDuration
	for rows.Next() {
		var d domain.CoolingDuration
		var unit string
		if err := rows.Scan(&unit, &d.Days); err != nil {
			return nil, fmt.Errorf("scan cooling duration: %w", err)
		}
		d.Unit = domain.AmortizationUnit(unit)
		durations = append(durations, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cooling durations: %w", err)
	}
	return durations, nil
}
