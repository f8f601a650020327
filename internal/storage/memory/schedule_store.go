package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

// PaymentScheduleStore is an in-memory implementation of
// storage.PaymentScheduleStore.
type PaymentScheduleStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.ScheduleEntry // keyed by (as_of_date, account_number)
}

// NewPaymentScheduleStore creates a new in-memory schedule store.
func NewPaymentScheduleStore() *PaymentScheduleStore {
	return &PaymentScheduleStore{data: make(map[string][]*domain.ScheduleEntry)}
}

// Compile-time interface check.
var _ storage.PaymentScheduleStore = (*PaymentScheduleStore)(nil)

// Put stores the schedule for one account. Test/fixture helper.
func (s *PaymentScheduleStore) Put(asOf time.Time, accountNumber string, entries []*domain.ScheduleEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cps := make([]*domain.ScheduleEntry, 0, len(entries))
	for _, e := range entries {
		cp := *e
		cps = append(cps, &cp)
	}
	sort.Slice(cps, func(i, j int) bool { return cps[i].Date.Before(cps[j].Date) })
	s.data[accountKey(asOf, accountNumber)] = cps
}

// GetByAccount retrieves schedule entries ordered by date ASC.
func (s *PaymentScheduleStore) GetByAccount(_ context.Context, asOf time.Time, accountNumber string) ([]*domain.ScheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.data[accountKey(asOf, accountNumber)]
	result := make([]*domain.ScheduleEntry, 0, len(stored))
	for _, e := range stored {
		cp := *e
		result = append(result, &cp)
	}
	return result, nil
}
