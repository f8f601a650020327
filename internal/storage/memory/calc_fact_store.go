package memory

import (
	"context"
	"sync"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

// CalcFactStore is an in-memory implementation of storage.CalcFactStore.
type CalcFactStore struct {
	mu   sync.RWMutex
	rows []*domain.CalcRow
}

// NewCalcFactStore creates a new in-memory calc fact store.
func NewCalcFactStore() *CalcFactStore {
	return &CalcFactStore{}
}

// Compile-time interface check.
var _ storage.CalcFactStore = (*CalcFactStore)(nil)

// InsertBulk appends finished calc rows for a run.
func (s *CalcFactStore) InsertBulk(_ context.Context, rows []*domain.CalcRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		if r == nil {
			return storage.ErrInvalidInput
		}
		cp := *r
		s.rows = append(s.rows, &cp)
	}
	return nil
}

// All returns every stored fact row. Test helper.
func (s *CalcFactStore) All() []*domain.CalcRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.CalcRow, 0, len(s.rows))
	for _, r := range s.rows {
		cp := *r
		result = append(result, &cp)
	}
	return result
}
