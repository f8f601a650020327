package memory

import (
	"context"
	"errors"
	"testing"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

func TestRunStore_AllocateMonotonic(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	first, err := store.Allocate(ctx, testAsOf)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	second, err := store.Allocate(ctx, testAsOf)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if second.RunID <= first.RunID {
		t.Errorf("expected monotonic run ids, got %d then %d", first.RunID, second.RunID)
	}
	if first.Status != domain.RunStatusRunning {
		t.Errorf("new run status %s, want RUNNING", first.Status)
	}
}

func TestRunStore_Complete(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run, err := store.Allocate(ctx, testAsOf)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if err := store.Complete(ctx, run.RunID, domain.RunStatusFailed, "phase exposure: boom"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	got, err := store.Get(ctx, run.RunID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != domain.RunStatusFailed {
		t.Errorf("status %s, want FAILED", got.Status)
	}
	if got.Note != "phase exposure: boom" {
		t.Errorf("note mismatch: %q", got.Note)
	}
	if got.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}

	err = store.Complete(ctx, 999, domain.RunStatusCompleted, "")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRunStore_GetLatestCompleted(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	_, err := store.GetLatestCompleted(ctx, testAsOf)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound with no runs, got %v", err)
	}

	first, _ := store.Allocate(ctx, testAsOf)
	second, _ := store.Allocate(ctx, testAsOf)
	// Third run stays RUNNING.
	if _, err := store.Allocate(ctx, testAsOf); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if err := store.Complete(ctx, first.RunID, domain.RunStatusCompleted, ""); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if err := store.Complete(ctx, second.RunID, domain.RunStatusFailed, "err"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	got, err := store.GetLatestCompleted(ctx, testAsOf)
	if err != nil {
		t.Fatalf("GetLatestCompleted failed: %v", err)
	}
	if got.RunID != first.RunID {
		t.Errorf("expected run %d, got %d", first.RunID, got.RunID)
	}
}
