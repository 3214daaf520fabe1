package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/school-health-api/pkg/errors"
)

type memoryCacheRepo struct {
	data      map[string][]byte
	deleted   []string
	getErr    error
	deleteErr error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{data: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
		}
	}
	return nil
}

func TestCacheServiceHitMissAndMetrics(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(newMemoryCacheRepo(), metrics, time.Minute, nil, true)

	var out map[string]int
	hit, err := svc.Get(context.Background(), "kpi:summary", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "kpi:summary", map[string]int{"total": 3}, 0))
	hit, err = svc.Get(context.Background(), "kpi:summary", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, out["total"])

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, false)

	require.NoError(t, svc.Set(context.Background(), "kpi:summary", 1, 0))
	assert.Empty(t, repo.data)
	hit, err := svc.Get(context.Background(), "kpi:summary", new(int))
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceInvalidateAggregates(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, true)
	require.NoError(t, svc.Set(context.Background(), "kpi:summary", 1, 0))
	require.NoError(t, svc.Set(context.Background(), "dashboard:overview", 1, 0))

	require.NoError(t, svc.InvalidateAggregates(context.Background()))
	assert.Empty(t, repo.data)
	assert.Equal(t, []string{"kpi:*", "dashboard:*"}, repo.deleted)

	repo.deleteErr = errors.New("redis down")
	assert.Error(t, svc.InvalidateAggregates(context.Background()))
}
