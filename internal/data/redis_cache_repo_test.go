package data

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageforge/ocrworker/internal/testutil"
)

// setupTestRedis creates a Redis client for testing.
// Tests will be skipped if Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func TestRedisCacheRepo_Set_Get_Delete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := setupTestRedis(t)
	defer client.Close()

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		key := "doc:test:1"
		value := []byte("%PDF-1.7 test document bytes")
		ttl := 5 * time.Minute

		err := repo.Set(ctx, key, value, ttl)
		require.NoError(t, err)

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, value, result)

		// Check TTL is set
		actualTTL := client.TTL(ctx, key).Val()
		assert.True(t, actualTTL > 0 && actualTTL <= ttl)
	})

	t.Run("get non-existent key", func(t *testing.T) {
		result, err := repo.Get(ctx, "doc:non:existent")
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("delete existing key", func(t *testing.T) {
		key := "doc:test:2"

		err := repo.Set(ctx, key, []byte("to be deleted"), time.Minute)
		require.NoError(t, err)

		deleted, err := repo.Delete(ctx, key)
		require.NoError(t, err)
		assert.True(t, deleted)

		// Verify it's gone
		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("delete non-existent key", func(t *testing.T) {
		deleted, err := repo.Delete(ctx, "doc:non:existent")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("health check", func(t *testing.T) {
		err := repo.Health(ctx)
		assert.NoError(t, err)
	})
}

func TestRedisCacheRepo_Validation(t *testing.T) {
	// Validation errors occur before any Redis operation, so no live
	// connection is needed.
	repo := NewRedisCacheRepo(redis.NewClient(&redis.Options{Addr: "localhost:1"}))
	ctx := context.Background()

	t.Run("empty key validation", func(t *testing.T) {
		err := repo.Set(ctx, "", []byte("value"), time.Minute)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "key cannot be empty")

		_, err = repo.Get(ctx, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "key cannot be empty")

		_, err = repo.Delete(ctx, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "key cannot be empty")
	})
}
