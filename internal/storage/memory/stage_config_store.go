package memory

import (
	"context"
	"sync"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

// StageConfigStore is an in-memory implementation of
// storage.StageConfigStore. Populated once at setup, read-only afterwards.
type StageConfigStore struct {
	mu         sync.RWMutex
	ratings    []*domain.RatingStageMapping
	thresholds []*domain.DelinquencyThreshold
	cooling    []*domain.CoolingDuration
}

// NewStageConfigStore creates a new in-memory stage config store.
func NewStageConfigStore() *StageConfigStore {
	return &StageConfigStore{}
}

// Compile-time interface check.
var _ storage.StageConfigStore = (*StageConfigStore)(nil)

// SetRatingMappings replaces the rating-to-stage mappings. Setup helper.
func (s *StageConfigStore) SetRatingMappings(mappings []*domain.RatingStageMapping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratings = copySlice(mappings)
}

// SetDelinquencyThresholds replaces the delinquent-days thresholds. Setup helper.
func (s *StageConfigStore) SetDelinquencyThresholds(thresholds []*domain.DelinquencyThreshold) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds = copySlice(thresholds)
}

// SetCoolingDurations replaces the cooling durations. Setup helper.
func (s *StageConfigStore) SetCoolingDurations(durations []*domain.CoolingDuration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooling = copySlice(durations)
}

// GetRatingMappings retrieves all rating-to-stage mappings.
func (s *StageConfigStore) GetRatingMappings(_ context.Context) ([]*domain.RatingStageMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySlice(s.ratings), nil
}

// GetDelinquencyThresholds retrieves all delinquent-days thresholds.
func (s *StageConfigStore) GetDelinquencyThresholds(_ context.Context) ([]*domain.DelinquencyThreshold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySlice(s.thresholds), nil
}

// GetCoolingDurations retrieves the cooling duration per amortization unit.
func (s *StageConfigStore) GetCoolingDurations(_ context.Context) ([]*domain.CoolingDuration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySlice(s.cooling), nil
}

func copySlice[T any](in []*T) []*T {
	out := make([]*T, 0, len(in))
	for _, v := range in {
		cp := *v
		out = append(out, &cp)
	}
	return out
}
