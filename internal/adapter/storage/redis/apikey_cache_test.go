package redis

import (
	"context"
	"testing"
	"time"

	"course-admin-gateway/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCacheKey() *domain.APIKey {
	return &domain.APIKey{
		ID:          uuid.New(),
		Name:        "lms-sync",
		KeyHash:     "abc123",
		KeyPrefix:   "ela_0011aabb",
		Permissions: domain.NewPermissionSet(domain.PermCoursesRead, domain.PermTopicsWrite),
		RateLimit:   120,
		Active:      true,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

func TestAPIKeyCache_SetAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewAPIKeyCache(client)
	ctx := context.Background()
	key := newTestCacheKey()

	// Miss before set
	got, err := cache.Get(ctx, key.KeyHash)
	assert.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.Set(ctx, key, time.Minute))

	got, err = cache.Get(ctx, key.KeyHash)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, key.ID, got.ID)
	assert.Equal(t, key.KeyHash, got.KeyHash)
	assert.Equal(t, key.Permissions, got.Permissions)
	assert.Equal(t, 120, got.RateLimit)
	assert.True(t, s.Exists("apikey:abc123"))
}

func TestAPIKeyCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewAPIKeyCache(client)
	ctx := context.Background()
	key := newTestCacheKey()

	require.NoError(t, cache.Set(ctx, key, time.Second))
	s.FastForward(2 * time.Second)

	got, err := cache.Get(ctx, key.KeyHash)
	assert.NoError(t, err)
	assert.Nil(t, got, "expired key should return nil")
}

func TestAPIKeyCache_Delete(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewAPIKeyCache(client)
	ctx := context.Background()
	key := newTestCacheKey()

	require.NoError(t, cache.Set(ctx, key, time.Minute))
	require.NoError(t, cache.Delete(ctx, key.KeyHash))

	got, err := cache.Get(ctx, key.KeyHash)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestAPIKeyCache_CorruptEntry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewAPIKeyCache(client)

	require.NoError(t, s.Set("apikey:bad", "not-json"))

	_, err := cache.Get(context.Background(), "bad")
	assert.Error(t, err)
}

func TestAPIKeyCache_RedisDown(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewAPIKeyCache(client)
	s.Close()

	_, err := cache.Get(context.Background(), "abc123")
	assert.Error(t, err)
}
