package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/affirmation-service/internal/config"
	"github.com/magabrotheeeer/affirmation-service/internal/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{AddressRedis: mr.Addr()}
	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestSetAndGet(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	expected := models.Subscription{
		UserUID:   "u-1",
		Plan:      models.PlanYearly,
		IsActive:  true,
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, cache.Set(ctx, SubscriptionKey("u-1"), expected, time.Minute))

	var actual models.Subscription
	found, err := cache.Get(ctx, SubscriptionKey("u-1"), &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestGetNotFound(t *testing.T) {
	cache, _ := setupTestCache(t)

	var out models.Subscription
	found, err := cache.Get(context.Background(), "no_such_key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", "value", time.Minute))
	require.NoError(t, cache.Invalidate(ctx, "key"))

	var out string
	found, err := cache.Get(ctx, "key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExpiration(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", "value", time.Second))
	mr.FastForward(2 * time.Second)

	var out string
	found, err := cache.Get(ctx, "short", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetInvalidJSON(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Db.Set(ctx, "bad", []byte("not-json"), time.Minute).Err())

	var out models.Subscription
	found, err := cache.Get(ctx, "bad", &out)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestInitServer_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := InitServer(ctx, config.RedisConnection{AddressRedis: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	cache, mr := setupTestCache(t)

	require.NoError(t, cache.Ping(context.Background()))
	mr.Close()
	assert.Error(t, cache.Ping(context.Background()))
}

func TestSetIfVersion(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()
	key := SubscriptionKey("u-1")

	version, err := cache.Version(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "0", version)

	stored, err := cache.SetIfVersion(ctx, key, version, "fresh", time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)

	var out string
	found, err := cache.Get(ctx, key, &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "fresh", out)

	mr.FastForward(2 * time.Minute)
	found, err = cache.Get(ctx, key, &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetIfVersion_SkippedAfterInvalidate(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()
	key := SubscriptionKey("u-1")

	stale, err := cache.Version(ctx, key)
	require.NoError(t, err)

	// Запись меняется, пока читатель ещё не заполнил кэш.
	require.NoError(t, cache.Invalidate(ctx, key))

	stored, err := cache.SetIfVersion(ctx, key, stale, "stale", time.Minute)
	require.NoError(t, err)
	assert.False(t, stored)

	var out string
	found, err := cache.Get(ctx, key, &out)
	require.NoError(t, err)
	assert.False(t, found)

	current, err := cache.Version(ctx, key)
	require.NoError(t, err)
	assert.NotEqual(t, stale, current)

	stored, err = cache.SetIfVersion(ctx, key, current, "fresh", time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)
}

func TestInvalidate_Unavailable(t *testing.T) {
	cache, mr := setupTestCache(t)
	mr.Close()

	assert.Error(t, cache.Invalidate(context.Background(), "key"))
}
