package replay_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authpress/pkg/redis"
	"github.com/dmitrymomot/authpress/pkg/replay"
)

func TestRedisStore(t *testing.T) {
	client, ks := redis.TestClient(t)
	ctx := context.Background()

	store := replay.NewRedisStore(client, replay.WithKeyspace(ks), replay.WithTTL(time.Hour))
	g := replay.NewGuard(store)

	bucket := replay.Bucket(false, "alice")
	require.NoError(t, g.Consume(ctx, bucket, "123456"))
	assert.ErrorIs(t, g.Consume(ctx, bucket, "123456"), replay.ErrCodeAlreadyUsed)
	assert.NoError(t, g.Consume(ctx, replay.Bucket(false, "bob"), "123456"))

	ttl, err := client.TTL(ctx, ks.Key("replay", bucket)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Consume(ctx, bucket, "654321") == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	require.NoError(t, g.Purge(ctx))
	used, err := g.IsUsed(ctx, bucket, "123456")
	require.NoError(t, err)
	assert.False(t, used)
}
