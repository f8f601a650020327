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

// CalcStore is an in-memory implementation of storage.CalcStore.
type CalcStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.CalcRow // keyed by (as_of_date, run_id, account_number)
}

// NewCalcStore creates a new in-memory calc store.
func NewCalcStore() *CalcStore {
	return &CalcStore{data: make(map[string][]*domain.CalcRow)}
}

// Compile-time interface check.
var _ storage.CalcStore = (*CalcStore)(nil)

func calcKey(asOf time.Time, runID int64, accountNumber string) string {
	return fmt.Sprintf("%s|%d|%s", dateKey(asOf), runID, accountNumber)
}

// ReplaceForAccount atomically replaces the calc rows for one (run, account).
func (s *CalcStore) ReplaceForAccount(_ context.Context, asOf time.Time, runID int64, accountNumber string, rows []*domain.CalcRow) error {
	cps := make([]*domain.CalcRow, 0, len(rows))
	for _, r := range rows {
		if r == nil || r.AccountNumber != accountNumber || r.RunID != runID {
			return storage.ErrInvalidInput
		}
		cp := *r
		cps = append(cps, &cp)
	}
	sort.Slice(cps, func(i, j int) bool { return cps[i].BucketID < cps[j].BucketID })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[calcKey(asOf, runID, accountNumber)] = cps
	return nil
}

// GetByAccount retrieves rows ordered by bucket id ASC.
func (s *CalcStore) GetByAccount(_ context.Context, asOf time.Time, runID int64, accountNumber string) ([]*domain.CalcRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.data[calcKey(asOf, runID, accountNumber)]
	result := make([]*domain.CalcRow, 0, len(stored))
	for _, r := range stored {
		cp := *r
		result = append(result, &cp)
	}
	return result, nil
}

// GetByRun retrieves all rows for a run, ordered by account then bucket.
func (s *CalcStore) GetByRun(_ context.Context, asOf time.Time, runID int64) ([]*domain.CalcRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CalcRow
	for _, rows := range s.data {
		for _, r := range rows {
			if dateKey(r.AsOfDate) == dateKey(asOf) && r.RunID == runID {
				cp := *r
				result = append(result, &cp)
			}
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].AccountNumber != result[j].AccountNumber {
			return result[i].AccountNumber < result[j].AccountNumber
		}
		return result[i].BucketID < result[j].BucketID
	})
	return result, nil
}

// CountByRun returns the number of calc rows for a run.
func (s *CalcStore) CountByRun(ctx context.Context, asOf time.Time, runID int64) (int, error) {
	rows, err := s.GetByRun(ctx, asOf, runID)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
