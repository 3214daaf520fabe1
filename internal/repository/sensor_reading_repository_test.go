package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-health-api/internal/models"
	appErrors "github.com/noah-isme/school-health-api/pkg/errors"
)

func TestMemoryReadingStoreExpires(t *testing.T) {
	store := NewMemoryReadingStore(time.Minute)
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(context.Background(), models.SensorReading{DeviceID: "scale-1", WeightKG: 20, HeightCM: 115}))

	reading, err := store.Get(context.Background(), "scale-1")
	require.NoError(t, err)
	assert.Equal(t, 20.0, reading.WeightKG)

	now = now.Add(time.Minute)
	_, err = store.Get(context.Background(), "scale-1")
	assert.ErrorIs(t, err, ErrReadingNotFound)
}

func TestMemoryReadingStoreDelete(t *testing.T) {
	store := NewMemoryReadingStore(time.Minute)
	require.NoError(t, store.Put(context.Background(), models.SensorReading{DeviceID: "scale-1"}))
	require.NoError(t, store.Delete(context.Background(), "scale-1"))
	_, err := store.Get(context.Background(), "scale-1")
	assert.ErrorIs(t, err, ErrReadingNotFound)
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var dest map[string]int
	assert.ErrorIs(t, repo.Get(context.Background(), "kpi:summary", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "kpi:summary", map[string]int{"a": 1}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "kpi:*"))
}
