package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

// InterpolatedPDStore is an in-memory implementation of
// storage.InterpolatedPDStore.
type InterpolatedPDStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.InterpolatedPD // keyed by scope
}

// NewInterpolatedPDStore creates a new in-memory interpolated PD store.
func NewInterpolatedPDStore() *InterpolatedPDStore {
	return &InterpolatedPDStore{data: make(map[string][]*domain.InterpolatedPD)}
}

// Compile-time interface check.
var _ storage.InterpolatedPDStore = (*InterpolatedPDStore)(nil)

func tsScopeKey(asOf time.Time, termStructureID, basisCode string) string {
	return fmt.Sprintf("ts|%s|%s|%s", dateKey(asOf), termStructureID, basisCode)
}

func acctScopeKey(asOf time.Time, accountNumber string) string {
	return fmt.Sprintf("acct|%s|%s", dateKey(asOf), accountNumber)
}

func (s *InterpolatedPDStore) replace(key string, rows []*domain.InterpolatedPD) error {
	cps := make([]*domain.InterpolatedPD, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			return storage.ErrInvalidInput
		}
		cp := *r
		cps = append(cps, &cp)
	}
	sort.Slice(cps, func(i, j int) bool { return cps[i].BucketID < cps[j].BucketID })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = cps
	return nil
}

func (s *InterpolatedPDStore) get(key string) []*domain.InterpolatedPD {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.data[key]
	result := make([]*domain.InterpolatedPD, 0, len(stored))
	for _, r := range stored {
		cp := *r
		result = append(result, &cp)
	}
	return result
}

// ReplaceForTermStructure atomically regenerates a term-structure series.
func (s *InterpolatedPDStore) ReplaceForTermStructure(_ context.Context, asOf time.Time, termStructureID, basisCode string, rows []*domain.InterpolatedPD) error {
	return s.replace(tsScopeKey(asOf, termStructureID, basisCode), rows)
}

// ReplaceForAccount atomically regenerates the account-level series.
func (s *InterpolatedPDStore) ReplaceForAccount(_ context.Context, asOf time.Time, accountNumber string, rows []*domain.InterpolatedPD) error {
	return s.replace(acctScopeKey(asOf, accountNumber), rows)
}

// GetForTermStructure retrieves the series ordered by bucket id ASC.
func (s *InterpolatedPDStore) GetForTermStructure(_ context.Context, asOf time.Time, termStructureID, basisCode string) ([]*domain.InterpolatedPD, error) {
	return s.get(tsScopeKey(asOf, termStructureID, basisCode)), nil
}

// GetForAccount retrieves the account-level series ordered by bucket id ASC.
func (s *InterpolatedPDStore) GetForAccount(_ context.Context, asOf time.Time, accountNumber string) ([]*domain.InterpolatedPD, error) {
	return s.get(acctScopeKey(asOf, accountNumber)), nil
}
