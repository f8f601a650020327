package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

func TestStageStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStageStore(pool)
	ctx := context.Background()
	asOf := date(2025, 6, 30)
	coolingStart := date(2025, 6, 30)

	rec := &domain.StageRecord{
		AsOfDate:         asOf,
		AccountNumber:    "ACC-001",
		Stage:            domain.Stage1,
		PreviousStage:    domain.Stage1,
		TargetStage:      domain.Stage2,
		InCooling:        true,
		CoolingStartDate: &coolingStart,
		CoolingDays:      90,
	}
	require.NoError(t, store.Upsert(ctx, rec))

	got, err := store.GetByAccount(ctx, asOf, "ACC-001")
	require.NoError(t, err)
	assert.Equal(t, domain.Stage1, got.Stage)
	assert.Equal(t, domain.Stage2, got.TargetStage)
	assert.True(t, got.InCooling)
	require.NotNil(t, got.CoolingStartDate)
	assert.True(t, got.CoolingStartDate.Equal(coolingStart))
	assert.Equal(t, 90, got.CoolingDays)

	// Second upsert for the same key overwrites.
	rec.Stage = domain.Stage2
	rec.InCooling = false
	rec.CoolingStartDate = nil
	require.NoError(t, store.Upsert(ctx, rec))

	got, err = store.GetByAccount(ctx, asOf, "ACC-001")
	require.NoError(t, err)
	assert.Equal(t, domain.Stage2, got.Stage)
	assert.False(t, got.InCooling)
	assert.Nil(t, got.CoolingStartDate)
}

func TestStageStore_GetLatestBefore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStageStore(pool)
	ctx := context.Background()

	for _, d := range []struct {
		asOf  time.Time
		stage domain.Stage
	}{
		{date(2025, 4, 30), domain.Stage1},
		{date(2025, 5, 31), domain.Stage2},
		{date(2025, 6, 30), domain.Stage3},
	} {
		require.NoError(t, store.Upsert(ctx, &domain.StageRecord{
			AsOfDate:      d.asOf,
			AccountNumber: "ACC-001",
			Stage:         d.stage,
		}))
	}

	// Latest strictly before June picks up the May record.
	got, err := store.GetLatestBefore(ctx, date(2025, 6, 30), "ACC-001")
	require.NoError(t, err)
	assert.Equal(t, domain.Stage2, got.Stage)

	_, err = store.GetLatestBefore(ctx, date(2025, 4, 30), "ACC-001")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStageStore_GetByAsOfDate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStageStore(pool)
	ctx := context.Background()
	asOf := date(2025, 6, 30)

	for _, num := range []string{"ACC-002", "ACC-001"} {
		require.NoError(t, store.Upsert(ctx, &domain.StageRecord{
			AsOfDate:      asOf,
			AccountNumber: num,
			Stage:         domain.Stage1,
		}))
	}

	got, err := store.GetByAsOfDate(ctx, asOf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ACC-001", got[0].AccountNumber)
	assert.Equal(t, "ACC-002", got[1].AccountNumber)
}
