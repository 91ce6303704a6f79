//go:build integration

package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/shadow-links/internal/links"
	"github.com/serroba/shadow-links/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}

	return "localhost:6379"
}

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: getRedisAddr()})
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	return client
}

func TestRedisStoreIntegration(t *testing.T) {
	ctx := context.Background()
	client := newRedisClient(t)
	s := store.NewRedisStore(client)
	owner := "redis-" + uuid.NewString()
	first := "r" + uuid.NewString()[:8]
	second := "r" + uuid.NewString()[:8]

	t.Cleanup(func() {
		client.Del(ctx, "link:"+first, "link:"+second, "owner:"+owner+":links")
	})

	t.Run("save and get link", func(t *testing.T) {
		link := newLink(first, owner, "https://example.com")
		link.Description = "cached"

		require.NoError(t, s.Save(ctx, link))

		got, err := s.GetByShortID(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", got.Destination)
		assert.Equal(t, "cached", got.Description)
		assert.Equal(t, owner, got.ShadowUserID)
		assert.True(t, link.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("duplicate short id is rejected", func(t *testing.T) {
		err := s.Save(ctx, newLink(first, "intruder", "https://new.com"))
		require.ErrorIs(t, err, links.ErrDuplicateShortID)

		got, _ := s.GetByShortID(ctx, first)
		assert.Equal(t, "https://example.com", got.Destination)
	})

	t.Run("lists owner links oldest first", func(t *testing.T) {
		later := newLink(second, owner, "https://two.example")
		later.CreatedAt = later.CreatedAt.Add(time.Second)
		require.NoError(t, s.Save(ctx, later))

		owned, err := s.ListByOwner(ctx, owner)

		require.NoError(t, err)
		require.Len(t, owned, 2)
		assert.Equal(t, first, owned[0].ShortID)
		assert.Equal(t, second, owned[1].ShortID)
	})

	t.Run("get non-existent returns ErrNotFound", func(t *testing.T) {
		_, err := s.GetByShortID(ctx, "nonexistent-"+uuid.NewString())

		assert.ErrorIs(t, err, links.ErrNotFound)
	})
}

func TestRedisCacheRepositoryIntegration(t *testing.T) {
	ctx := context.Background()
	client := newRedisClient(t)
	backing := store.NewMemoryStore()
	s := store.NewRedisCacheRepository(backing, client, time.Minute)
	shortID := "c" + uuid.NewString()[:8]

	t.Cleanup(func() { client.Del(ctx, "cache:link:"+shortID) })

	t.Run("write-through populates the cache", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, newLink(shortID, "owner", "https://example.com")))

		ttl, err := client.TTL(ctx, "cache:link:"+shortID).Result()
		require.NoError(t, err)
		assert.Positive(t, ttl)

		got, err := s.GetByShortID(ctx, shortID)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", got.Destination)
	})

	t.Run("miss falls through to the store", func(t *testing.T) {
		client.Del(ctx, "cache:link:"+shortID)

		got, err := s.GetByShortID(ctx, shortID)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", got.Destination)

		exists, err := client.Exists(ctx, "cache:link:"+shortID).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), exists)
	})

	t.Run("listing bypasses the cache", func(t *testing.T) {
		owned, err := s.ListByOwner(ctx, "owner")

		require.NoError(t, err)
		assert.Len(t, owned, 1)
	})

	t.Run("unknown ids are not cached", func(t *testing.T) {
		_, err := s.GetByShortID(ctx, "missing-"+shortID)

		assert.ErrorIs(t, err, links.ErrNotFound)
	})
}

func TestRateLimitRedisStoreIntegration(t *testing.T) {
	ctx := context.Background()
	client := newRedisClient(t)
	s := store.NewRateLimitRedisStore(client)
	key := "it-" + uuid.NewString()

	t.Cleanup(func() { client.Del(ctx, "ratelimit:"+key) })

	t.Run("counts requests inside the window", func(t *testing.T) {
		for want := int64(1); want <= 3; want++ {
			count, err := s.Record(ctx, key, time.Minute)

			require.NoError(t, err)
			assert.Equal(t, want, count)
		}
	})

	t.Run("expired requests stop counting", func(t *testing.T) {
		shortKey := key + "-short"
		t.Cleanup(func() { client.Del(ctx, "ratelimit:"+shortKey) })

		_, _ = s.Record(ctx, shortKey, 50*time.Millisecond)
		time.Sleep(60 * time.Millisecond)

		count, err := s.Record(ctx, shortKey, 50*time.Millisecond)

		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}
