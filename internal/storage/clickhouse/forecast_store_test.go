package clickhouse_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menu-forecast/internal/domain"
	"menu-forecast/internal/storage"
	"menu-forecast/internal/storage/clickhouse"
)

var (
	day1     = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	day2     = time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	trainedA = time.Date(2024, 2, 29, 1, 0, 0, 0, time.UTC)
	trainedB = time.Date(2024, 2, 29, 2, 0, 0, 0, time.UTC)
)

func TestForecastStore_UpsertReplacesSameKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewForecastStore(conn)
	ctx := context.Background()

	require.NoError(t, store.UpsertBulk(ctx, []*domain.Forecast{
		{EntityID: 1, Date: day1, ModelTag: "ridge", Point: 5, Lower: 3, Upper: 7, TrainedAt: trainedA},
	}))
	require.NoError(t, store.UpsertBulk(ctx, []*domain.Forecast{
		{EntityID: 1, Date: day1, ModelTag: "ridge", Point: 6, Lower: 4, Upper: 8, TrainedAt: trainedB},
	}))

	got, err := store.GetByEntity(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 6.0, got[0].Point)
	assert.Equal(t, 4.0, got[0].Lower)
	assert.Equal(t, 8.0, got[0].Upper)
	assert.True(t, got[0].TrainedAt.Equal(trainedB))
	assert.True(t, got[0].Date.Equal(day1))
}

func TestForecastStore_SiblingTagsAndActive(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewForecastStore(conn)
	ctx := context.Background()

	require.NoError(t, store.UpsertBulk(ctx, []*domain.Forecast{
		{EntityID: 1, Date: day1, ModelTag: "seasonal_ma_k4", Point: 10, Lower: 10, Upper: 10, TrainedAt: trainedA},
		{EntityID: 1, Date: day1, ModelTag: "ridge", Point: 11, Lower: 9, Upper: 13, TrainedAt: trainedB},
		{EntityID: 1, Date: day2, ModelTag: "seasonal_ma_k4", Point: 20, Lower: 20, Upper: 20, TrainedAt: trainedB},
		{EntityID: 1, Date: day2, ModelTag: "naive_tminus7", Point: 21, Lower: 21, Upper: 21, TrainedAt: trainedB},
		{EntityID: 2, Date: day1, ModelTag: "ridge", Point: 1, Lower: 0, Upper: 2, TrainedAt: trainedA},
	}))

	all, err := store.GetByEntity(ctx, 1)
	require.NoError(t, err)
	require.Len(t, all, 4)

	active, err := store.GetActive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "ridge", active[0].ModelTag)
	assert.Equal(t, "naive_tminus7", active[1].ModelTag)
}

func TestForecastStore_InvalidBatchIsRejected(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewForecastStore(conn)
	ctx := context.Background()

	err := store.UpsertBulk(ctx, []*domain.Forecast{
		{EntityID: 1, Date: day1, ModelTag: "ridge", Point: 1, Lower: 1, Upper: 1, TrainedAt: trainedA},
		{EntityID: 1, Date: day2, ModelTag: "", Point: 1, Lower: 1, Upper: 1, TrainedAt: trainedA},
		{EntityID: 1, Date: day2, ModelTag: "ridge", Point: math.Inf(1), TrainedAt: trainedA},
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	got, err := store.GetByEntity(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestObservationStore_RoundTrip(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewObservationStore(conn)
	ctx := context.Background()

	require.NoError(t, store.AddEntities(ctx, 9))
	require.NoError(t, store.InsertBulk(ctx, []*domain.Observation{
		{EntityID: 2, Date: day2, Quantity: 4},
		{EntityID: 1, Date: day1, Quantity: 3},
		{EntityID: 1, Date: day1, Quantity: 2},
	}))

	ids, err := store.GetEntityIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 9}, ids)

	obs, err := store.GetObservations(ctx)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, int64(1), obs[0].EntityID)
	assert.Equal(t, int64(5), obs[0].Quantity)
	assert.True(t, obs[0].Date.Equal(day1))
	assert.Equal(t, int64(2), obs[1].EntityID)
}

func TestObservationStore_RejectsInvalid(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewObservationStore(conn)
	err := store.InsertBulk(context.Background(), []*domain.Observation{{EntityID: 1}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
