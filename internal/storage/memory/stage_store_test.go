package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

func TestStageStore_UpsertOverwrites(t *testing.T) {
	store := NewStageStore()
	ctx := context.Background()

	rec := &domain.StageRecord{AsOfDate: testAsOf, AccountNumber: "ACC-001", Stage: domain.Stage1}
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	rec.Stage = domain.Stage2
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	got, err := store.GetByAccount(ctx, testAsOf, "ACC-001")
	if err != nil {
		t.Fatalf("GetByAccount failed: %v", err)
	}
	if got.Stage != domain.Stage2 {
		t.Errorf("stage mismatch: got %s, want %s", got.Stage, domain.Stage2)
	}
}

func TestStageStore_GetLatestBefore(t *testing.T) {
	store := NewStageStore()
	ctx := context.Background()

	dates := []struct {
		asOf  time.Time
		stage domain.Stage
	}{
		{time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC), domain.Stage1},
		{time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC), domain.Stage2},
		{time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), domain.Stage3},
	}
	for _, d := range dates {
		rec := &domain.StageRecord{AsOfDate: d.asOf, AccountNumber: "ACC-001", Stage: d.stage}
		if err := store.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	got, err := store.GetLatestBefore(ctx, testAsOf, "ACC-001")
	if err != nil {
		t.Fatalf("GetLatestBefore failed: %v", err)
	}
	if got.Stage != domain.Stage2 {
		t.Errorf("expected the May record, got stage %s", got.Stage)
	}

	_, err = store.GetLatestBefore(ctx, dates[0].asOf, "ACC-001")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound before the first record, got %v", err)
	}
}

func TestStageStore_GetByAsOfDate(t *testing.T) {
	store := NewStageStore()
	ctx := context.Background()

	for _, acct := range []string{"ACC-002", "ACC-001"} {
		rec := &domain.StageRecord{AsOfDate: testAsOf, AccountNumber: acct, Stage: domain.Stage1}
		if err := store.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	got, err := store.GetByAsOfDate(ctx, testAsOf)
	if err != nil {
		t.Fatalf("GetByAsOfDate failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].AccountNumber != "ACC-001" {
		t.Errorf("expected ACC-001 first, got %s", got[0].AccountNumber)
	}
}

func TestStageStore_CoolingFieldsRoundTrip(t *testing.T) {
	store := NewStageStore()
	ctx := context.Background()

	start := testAsOf.AddDate(0, -1, 0)
	rec := &domain.StageRecord{
		AsOfDate:         testAsOf,
		AccountNumber:    "ACC-001",
		Stage:            domain.Stage2,
		PreviousStage:    domain.Stage2,
		TargetStage:      domain.Stage1,
		InCooling:        true,
		CoolingStartDate: &start,
		CoolingDays:      90,
	}
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.GetByAccount(ctx, testAsOf, "ACC-001")
	if err != nil {
		t.Fatalf("GetByAccount failed: %v", err)
	}
	if !got.InCooling || got.CoolingDays != 90 {
		t.Errorf("cooling fields lost: in=%v days=%d", got.InCooling, got.CoolingDays)
	}
	if got.CoolingStartDate == nil || !got.CoolingStartDate.Equal(start) {
		t.Errorf("cooling start date mismatch: %v", got.CoolingStartDate)
	}
	if got.TargetStage != domain.Stage1 {
		t.Errorf("target stage mismatch: %s", got.TargetStage)
	}
}

func TestStageStore_InvalidInput(t *testing.T) {
	store := NewStageStore()
	ctx := context.Background()

	err := store.Upsert(ctx, &domain.StageRecord{AsOfDate: testAsOf})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
