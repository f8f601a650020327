package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

func TestTermStructureStore_PutAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTermStructureStore(pool)
	ctx := context.Background()

	ts := &domain.PDTermStructure{
		ID:           "TS-RETAIL",
		Name:         "Retail rating curve",
		Kind:         domain.TermStructureRating,
		Granularity:  domain.GranularityMonthly,
		HorizonYears: 5,
		Inputs: []domain.PDInput{
			{TermStructureID: "TS-RETAIL", BasisCode: "AA", AnnualPD: 0.01},
			{TermStructureID: "TS-RETAIL", BasisCode: "BB", AnnualPD: 0.05},
		},
	}
	require.NoError(t, store.Put(ctx, ts))

	got, err := store.GetByID(ctx, "TS-RETAIL")
	require.NoError(t, err)
	assert.Equal(t, domain.TermStructureRating, got.Kind)
	assert.Equal(t, domain.GranularityMonthly, got.Granularity)
	assert.Equal(t, 5, got.HorizonYears)
	require.Len(t, got.Inputs, 2)

	in, ok := got.InputFor("BB")
	require.True(t, ok)
	assert.Equal(t, 0.05, in.AnnualPD)
}

func TestTermStructureStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTermStructureStore(pool)
	ctx := context.Background()

	_, err := store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTermStructureStore_GetAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTermStructureStore(pool)
	ctx := context.Background()

	for _, id := range []string{"TS-B", "TS-A"} {
		require.NoError(t, store.Put(ctx, &domain.PDTermStructure{
			ID:          id,
			Kind:        domain.TermStructureDelinquency,
			Granularity: domain.GranularityQuarterly,
			Inputs: []domain.PDInput{
				{TermStructureID: id, BasisCode: "CURRENT", AnnualPD: 0.02},
			},
		}))
	}

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "TS-A", got[0].ID)
	assert.Equal(t, "TS-B", got[1].ID)
	assert.Len(t, got[0].Inputs, 1)
}
