package memory

import (
	"context"
	"sync"
	"time"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu     sync.Mutex
	nextID int64
	runs   map[int64]*domain.Run
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{nextID: 1, runs: make(map[int64]*domain.Run)}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Allocate creates a new RUNNING run with a monotonically increasing id.
func (s *RunStore) Allocate(_ context.Context, asOf time.Time) (*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := &domain.Run{
		RunID:     s.nextID,
		AsOfDate:  asOf,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.nextID++
	s.runs[run.RunID] = run

	cp := *run
	return &cp, nil
}

// Complete marks a run COMPLETED or FAILED with an optional note.
func (s *RunStore) Complete(_ context.Context, runID int64, status domain.RunStatus, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return storage.ErrNotFound
	}
	now := time.Now().UTC()
	run.Status = status
	run.Note = note
	run.CompletedAt = &now
	return nil
}

// Get retrieves a run by id.
func (s *RunStore) Get(_ context.Context, runID int64) (*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *run
	return &cp, nil
}

// GetLatestCompleted retrieves the most recent completed run for a date.
func (s *RunStore) GetLatestCompleted(_ context.Context, asOf time.Time) (*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *domain.Run
	for _, run := range s.runs {
		if run.Status != domain.RunStatusCompleted {
			continue
		}
		if dateKey(run.AsOfDate) != dateKey(asOf) {
			continue
		}
		if latest == nil || run.RunID > latest.RunID {
			latest = run
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}
