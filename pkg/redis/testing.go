package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// TestClient connects to the server named by REDIS_URL and skips the test when
// the variable is unset or the server is unreachable. Keys written under the
// returned keyspace are removed when the test ends.
func TestClient(t testing.TB) (*redis.Client, Keyspace) {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	client, err := Connect(context.Background(), Config{
		ConnectionURL:  url,
		RetryAttempts:  1,
		ConnectTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	ks := NewKeyspace("authpress-test:" + time.Now().Format("150405.000000000"))
	t.Cleanup(func() {
		ctx := context.Background()
		iter := client.Scan(ctx, 0, ks.Pattern(), 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
		_ = client.Close()
	})

	return client, ks
}
