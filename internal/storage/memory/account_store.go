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

// AccountStore is an in-memory implementation of storage.AccountStore.
type AccountStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Account // keyed by (as_of_date, account_number)
}

// NewAccountStore creates a new in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{data: make(map[string]*domain.Account)}
}

// Compile-time interface check.
var _ storage.AccountStore = (*AccountStore)(nil)

func accountKey(asOf time.Time, accountNumber string) string {
	return fmt.Sprintf("%s|%s", dateKey(asOf), accountNumber)
}

// ReplaceForDate replaces the full account snapshot for an as-of date.
func (s *AccountStore) ReplaceForDate(_ context.Context, asOf time.Time, accounts []*domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := dateKey(asOf) + "|"
	for k := range s.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(s.data, k)
		}
	}

	for _, a := range accounts {
		if a == nil || a.AccountNumber == "" {
			return storage.ErrInvalidInput
		}
		cp := *a
		cp.AsOfDate = asOf
		s.data[accountKey(asOf, a.AccountNumber)] = &cp
	}
	return nil
}

// GetByAsOfDate retrieves all accounts for an as-of date, ordered by
// account number.
func (s *AccountStore) GetByAsOfDate(_ context.Context, asOf time.Time) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Account
	for _, a := range s.data {
		if dateKey(a.AsOfDate) == dateKey(asOf) {
			cp := *a
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].AccountNumber < result[j].AccountNumber
	})
	return result, nil
}

// GetByNumber retrieves one account. Returns ErrNotFound if absent.
func (s *AccountStore) GetByNumber(_ context.Context, asOf time.Time, accountNumber string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.data[accountKey(asOf, accountNumber)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// UpdateStage writes the effective stage back onto the account snapshot.
func (s *AccountStore) UpdateStage(_ context.Context, asOf time.Time, accountNumber string, stage domain.Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.data[accountKey(asOf, accountNumber)]
	if !ok {
		return storage.ErrNotFound
	}
	a.CurrentStage = stage
	return nil
}
