package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-booking-api/internal/models"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
)

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

func exerciseCatalogCache(t *testing.T, cache catalogCache) {
	t.Helper()
	ctx := context.Background()

	var out []models.Doctor
	assert.ErrorIs(t, cache.Get(ctx, "catalog:doctors", &out), appErrors.ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "catalog:doctors", []models.Doctor{{ID: "doc-1", Name: "dr rao"}}, time.Minute))
	require.NoError(t, cache.Set(ctx, "catalog:tests:page=1", []string{"x"}, time.Minute))
	require.NoError(t, cache.Set(ctx, "other:key", "y", time.Minute))

	require.NoError(t, cache.Get(ctx, "catalog:doctors", &out))
	require.Len(t, out, 1)
	assert.Equal(t, "dr rao", out[0].Name)

	require.NoError(t, cache.DeleteByPattern(ctx, "catalog:*"))
	assert.ErrorIs(t, cache.Get(ctx, "catalog:doctors", &out), appErrors.ErrCacheMiss)
	var other string
	require.NoError(t, cache.Get(ctx, "other:key", &other))
	assert.Equal(t, "y", other)
}

func TestRedisCacheRepository(t *testing.T) {
	_, client := newMiniredisClient(t)
	exerciseCatalogCache(t, NewCacheRepository(client, nil))
}

func TestMemoryCacheRepository(t *testing.T) {
	exerciseCatalogCache(t, NewMemoryCacheRepository(time.Minute, time.Minute))
}

func TestCacheRepositoryWithoutClientMisses(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var out string
	assert.ErrorIs(t, repo.Get(context.Background(), "k", &out), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", "v", time.Minute))
}
