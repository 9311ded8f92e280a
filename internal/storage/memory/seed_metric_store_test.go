package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fantasy-alpha-lab/internal/domain"
	"fantasy-alpha-lab/internal/storage"
)

func TestSeedMetricStore_InsertBulkAndGet(t *testing.T) {
	store := NewSeedMetricStore()
	ctx := context.Background()

	rows := []*domain.SeedResult{
		{RunID: "ab_1", Seed: 3, WeeklyPointsLift: 0.5, Status: domain.SeedStatusOK},
		{RunID: "ab_1", Seed: 1, WeeklyPointsLift: -0.2, Status: domain.SeedStatusOK},
		{RunID: "ab_2", Seed: 1, Status: domain.SeedStatusError, Error: "boom"},
	}
	require.NoError(t, store.InsertBulk(ctx, rows))

	got, err := store.GetByRunID(ctx, "ab_1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Seed)
	assert.Equal(t, 3, got[1].Seed)

	empty, err := store.GetByRunID(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSeedMetricStore_DuplicateFailsWholeBatch(t *testing.T) {
	store := NewSeedMetricStore()
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.SeedResult{{RunID: "ab_1", Seed: 1}}))

	err := store.InsertBulk(ctx, []*domain.SeedResult{
		{RunID: "ab_1", Seed: 2},
		{RunID: "ab_1", Seed: 1},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByRunID(ctx, "ab_1")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	err = store.InsertBulk(ctx, []*domain.SeedResult{{RunID: "ab_9", Seed: 4}, {RunID: "ab_9", Seed: 4}})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	assert.ErrorIs(t, store.InsertBulk(ctx, []*domain.SeedResult{nil}), storage.ErrInvalidInput)
}
