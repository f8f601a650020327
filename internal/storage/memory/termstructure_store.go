package memory

import (
	"context"
	"sort"
	"sync"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

// TermStructureStore is an in-memory implementation of
// storage.TermStructureStore.
type TermStructureStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PDTermStructure
}

// NewTermStructureStore creates a new in-memory term-structure store.
func NewTermStructureStore() *TermStructureStore {
	return &TermStructureStore{data: make(map[string]*domain.PDTermStructure)}
}

// Compile-time interface check.
var _ storage.TermStructureStore = (*TermStructureStore)(nil)

// Put stores a term structure. Test/fixture helper.
func (s *TermStructureStore) Put(ts *domain.PDTermStructure) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *ts
	cp.Inputs = append([]domain.PDInput(nil), ts.Inputs...)
	s.data[ts.ID] = &cp
}

// GetByID retrieves a term structure. Returns ErrNotFound if absent.
func (s *TermStructureStore) GetByID(_ context.Context, id string) (*domain.PDTermStructure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ts, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *ts
	cp.Inputs = append([]domain.PDInput(nil), ts.Inputs...)
	return &cp, nil
}

// GetAll retrieves every configured term structure, ordered by id.
func (s *TermStructureStore) GetAll(_ context.Context) ([]*domain.PDTermStructure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PDTermStructure
	for _, ts := range s.data {
		cp := *ts
		cp.Inputs = append([]domain.PDInput(nil), ts.Inputs...)
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
