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

// ECLResultStore is an in-memory implementation of storage.ECLResultStore.
type ECLResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ECLResult // keyed by (as_of_date, run_id, account_number)
}

// NewECLResultStore creates a new in-memory ECL result store.
func NewECLResultStore() *ECLResultStore {
	return &ECLResultStore{data: make(map[string]*domain.ECLResult)}
}

// Compile-time interface check.
var _ storage.ECLResultStore = (*ECLResultStore)(nil)

func eclKey(asOf time.Time, runID int64, accountNumber string) string {
	return fmt.Sprintf("%s|%d|%s", dateKey(asOf), runID, accountNumber)
}

// InsertBulk adds results for a run. Fails entire batch on any duplicate.
func (s *ECLResultStore) InsertBulk(_ context.Context, results []*domain.ECLResult) error {
	if len(results) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(results))
	for _, r := range results {
		if r == nil || r.AccountNumber == "" {
			return storage.ErrInvalidInput
		}
		key := eclKey(r.AsOfDate, r.RunID, r.AccountNumber)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range results {
		cp := *r
		s.data[eclKey(r.AsOfDate, r.RunID, r.AccountNumber)] = &cp
	}
	return nil
}

// GetByRun retrieves results ordered by account number.
func (s *ECLResultStore) GetByRun(_ context.Context, asOf time.Time, runID int64) ([]*domain.ECLResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ECLResult
	for _, r := range s.data {
		if dateKey(r.AsOfDate) == dateKey(asOf) && r.RunID == runID {
			cp := *r
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AccountNumber < result[j].AccountNumber
	})
	return result, nil
}
