package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ifrs9-engine/internal/domain"
	"ifrs9-engine/internal/storage"
)

func TestRunStore_AllocateMonotonic(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()
	asOf := date(2025, 6, 30)

	first, err := store.Allocate(ctx, asOf)
	require.NoError(t, err)
	second, err := store.Allocate(ctx, asOf)
	require.NoError(t, err)

	assert.Greater(t, second.RunID, first.RunID)
	assert.Equal(t, domain.RunStatusRunning, first.Status)
	assert.NotZero(t, first.StartedAt)
	assert.Nil(t, first.CompletedAt)
}

func TestRunStore_CompleteAndLatest(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()
	asOf := date(2025, 6, 30)

	first, err := store.Allocate(ctx, asOf)
	require.NoError(t, err)
	second, err := store.Allocate(ctx, asOf)
	require.NoError(t, err)

	require.NoError(t, store.Complete(ctx, first.RunID, domain.RunStatusCompleted, ""))
	require.NoError(t, store.Complete(ctx, second.RunID, domain.RunStatusFailed, "projection failed"))

	// Only the completed run counts as latest.
	latest, err := store.GetLatestCompleted(ctx, asOf)
	require.NoError(t, err)
	assert.Equal(t, first.RunID, latest.RunID)
	assert.NotNil(t, latest.CompletedAt)

	failed, err := store.Get(ctx, second.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, failed.Status)
	assert.Equal(t, "projection failed", failed.Note)
}

func TestRunStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	_, err := store.Get(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetLatestCompleted(ctx, date(2025, 6, 30))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.Complete(ctx, 9999, domain.RunStatusCompleted, "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
