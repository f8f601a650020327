package memory

import (
	"context"
	"errors"
	"testing"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

func TestCalcFactStore_InsertBulkAppends(t *testing.T) {
	store := NewCalcFactStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.CalcRow{
		{AsOfDate: testAsOf, RunID: 1, AccountNumber: "ACC-001", BucketID: 1},
		{AsOfDate: testAsOf, RunID: 1, AccountNumber: "ACC-001", BucketID: 2},
	}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, []*domain.CalcRow{
		{AsOfDate: testAsOf, RunID: 2, AccountNumber: "ACC-001", BucketID: 1},
	}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	if got := store.All(); len(got) != 3 {
		t.Errorf("expected 3 fact rows, got %d", len(got))
	}
}

func TestCalcFactStore_NilRowRejected(t *testing.T) {
	store := NewCalcFactStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.CalcRow{nil})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil row, got %v", err)
	}
}
