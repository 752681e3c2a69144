package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/civicchat/orchestra/pkg/adapters/redis"
	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunThreadStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	threadID := "thread-ttl"

	err := store.Save(ctx, threadID, []domain.Message{domain.UserMessage("hi")})
	assert.NoError(t, err)

	ids, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, ids, threadID)

	// Fast Forward time in miniredis (for Key Expiration)
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, threadID)
	assert.ErrorIs(t, err, domain.ErrThreadNotFound)

	// The index is pruned against time.Now(), so wall time has to pass too.
	time.Sleep(1200 * time.Millisecond)

	ids, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	err := store.Save(ctx, "my-thread", nil)
	assert.NoError(t, err)

	assert.True(t, mr.Exists("custom:app:thread:my-thread"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:threads"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, list, "my-thread")

	msgs, err := store.Load(ctx, "my-thread")
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestRedisStore_Ping(t *testing.T) {
	_, client := newClient(t)
	assert.NoError(t, redis.NewFromClient(client).Ping(context.Background()))
}
