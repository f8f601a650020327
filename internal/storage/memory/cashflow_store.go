package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

// CashflowStore is an in-memory implementation of storage.CashflowStore.
type CashflowStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.CashflowBucket // keyed by (as_of_date, account_number)
}

// NewCashflowStore creates a new in-memory cashflow store.
func NewCashflowStore() *CashflowStore {
	return &CashflowStore{data: make(map[string][]*domain.CashflowBucket)}
}

// Compile-time interface check.
var _ storage.CashflowStore = (*CashflowStore)(nil)

// ReplaceForAccount atomically deletes and recreates the bucket sequence.
func (s *CashflowStore) ReplaceForAccount(_ context.Context, asOf time.Time, accountNumber string, buckets []*domain.CashflowBucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cps := make([]*domain.CashflowBucket, 0, len(buckets))
	for _, b := range buckets {
		if b == nil || b.AccountNumber != accountNumber {
			return storage.ErrInvalidInput
		}
		cp := *b
		cps = append(cps, &cp)
	}
	sort.Slice(cps, func(i, j int) bool { return cps[i].BucketID < cps[j].BucketID })

	s.data[accountKey(asOf, accountNumber)] = cps
	return nil
}

// GetByAccount retrieves buckets ordered by bucket id ASC.
func (s *CashflowStore) GetByAccount(_ context.Context, asOf time.Time, accountNumber string) ([]*domain.CashflowBucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.data[accountKey(asOf, accountNumber)]
	result := make([]*domain.CashflowBucket, 0, len(stored))
	for _, b := range stored {
		cp := *b
		result = append(result, &cp)
	}
	return result, nil
}

// CountByAsOfDate returns the number of buckets stored for a date.
func (s *CashflowStore) CountByAsOfDate(_ context.Context, asOf time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := dateKey(asOf) + "|"
	count := 0
	for k, buckets := range s.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			count += len(buckets)
		}
	}
	return count, nil
}
