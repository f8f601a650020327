package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

// StageStore is an in-memory implementation of storage.StageStore.
type StageStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.StageRecord // keyed by account_number, ordered by as-of date
}

// NewStageStore creates a new in-memory stage store.
func NewStageStore() *StageStore {
	return &StageStore{data: make(map[string][]*domain.StageRecord)}
}

// Compile-time interface check.
var _ storage.StageStore = (*StageStore)(nil)

// Upsert writes the stage record for (as_of_date, account_number).
func (s *StageStore) Upsert(_ context.Context, rec *domain.StageRecord) error {
	if rec == nil || rec.AccountNumber == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	if cp.CoolingStartDate != nil {
		d := *cp.CoolingStartDate
		cp.CoolingStartDate = &d
	}

	recs := s.data[rec.AccountNumber]
	for i, existing := range recs {
		if dateKey(existing.AsOfDate) == dateKey(rec.AsOfDate) {
			recs[i] = &cp
			return nil
		}
	}
	recs = append(recs, &cp)
	sort.Slice(recs, func(i, j int) bool { return recs[i].AsOfDate.Before(recs[j].AsOfDate) })
	s.data[rec.AccountNumber] = recs
	return nil
}

// GetByAccount retrieves the record for one as-of date.
func (s *StageStore) GetByAccount(_ context.Context, asOf time.Time, accountNumber string) (*domain.StageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.data[accountNumber] {
		if dateKey(rec.AsOfDate) == dateKey(asOf) {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

// GetLatestBefore retrieves the most recent record strictly before asOf.
func (s *StageStore) GetLatestBefore(_ context.Context, asOf time.Time, accountNumber string) (*domain.StageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.StageRecord
	for _, rec := range s.data[accountNumber] {
		if rec.AsOfDate.Before(asOf) && dateKey(rec.AsOfDate) != dateKey(asOf) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

// GetByAsOfDate retrieves all records for a date, ordered by account.
func (s *StageStore) GetByAsOfDate(_ context.Context, asOf time.Time) ([]*domain.StageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StageRecord
	for _, recs := range s.data {
		for _, rec := range recs {
			if dateKey(rec.AsOfDate) == dateKey(asOf) {
				cp := *rec
				result = append(result, &cp)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AccountNumber < result[j].AccountNumber
	})
	return result, nil
}
