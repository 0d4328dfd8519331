package redis_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authpress/pkg/redis"
)

func TestKeyspace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix string
		want   string
	}{
		{prefix: "", want: "authpress:account:42"},
		{prefix: "app", want: "app:account:42"},
		{prefix: "app:", want: "app:account:42"},
	}

	for _, tt := range tests {
		ks := redis.NewKeyspace(tt.prefix)
		assert.Equal(t, tt.want, ks.Key("account", "42"))
	}

	assert.Equal(t, "authpress:replay:*", redis.NewKeyspace("").Pattern("replay"))
}

func TestConnect_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := redis.Connect(context.Background(), redis.Config{})
	require.ErrorIs(t, err, redis.ErrEmptyConnectionURL)

	_, err = redis.Connect(context.Background(), redis.Config{ConnectionURL: "://nope"})
	require.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)
}

func TestConnect_Live(t *testing.T) {
	client, _ := redis.TestClient(t)
	require.NoError(t, redis.Healthcheck(client)(context.Background()))
}
