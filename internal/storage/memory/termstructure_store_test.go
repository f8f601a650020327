package memory

import (
	"context"
	"errors"
	"testing"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

func TestTermStructureStore_PutAndGet(t *testing.T) {
	store := NewTermStructureStore()
	ctx := context.Background()

	store.Put(&domain.PDTermStructure{
		ID:           "TS-CORP",
		Name:         "Corporate ratings",
		Kind:         domain.TermStructureRating,
		Granularity:  domain.GranularityMonthly,
		HorizonYears: 5,
		Inputs: []domain.PDInput{
			{TermStructureID: "TS-CORP", BasisCode: "A", AnnualPD: 0.015},
		},
	})

	ts, err := store.GetByID(ctx, "TS-CORP")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if ts.HorizonYears != 5 || len(ts.Inputs) != 1 {
		t.Errorf("unexpected term structure: %+v", ts)
	}

	if _, err := store.GetByID(ctx, "TS-MISSING"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTermStructureStore_GetAllOrdered(t *testing.T) {
	store := NewTermStructureStore()
	ctx := context.Background()

	store.Put(&domain.PDTermStructure{ID: "TS-RETAIL", Kind: domain.TermStructureDelinquency})
	store.Put(&domain.PDTermStructure{ID: "TS-CORP", Kind: domain.TermStructureRating})

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 term structures, got %d", len(all))
	}
	if all[0].ID != "TS-CORP" || all[1].ID != "TS-RETAIL" {
		t.Errorf("expected id order TS-CORP,TS-RETAIL got %s,%s", all[0].ID, all[1].ID)
	}
}

func TestTermStructureStore_CopiesAreIsolated(t *testing.T) {
	store := NewTermStructureStore()
	ctx := context.Background()

	store.Put(&domain.PDTermStructure{
		ID:     "TS-CORP",
		Kind:   domain.TermStructureRating,
		Inputs: []domain.PDInput{{TermStructureID: "TS-CORP", BasisCode: "A", AnnualPD: 0.015}},
	})

	first, err := store.GetByID(ctx, "TS-CORP")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	first.Inputs[0].AnnualPD = 0.99

	second, err := store.GetByID(ctx, "TS-CORP")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if second.Inputs[0].AnnualPD != 0.015 {
		t.Errorf("stored inputs mutated through a returned copy: %v", second.Inputs[0].AnnualPD)
	}
}
