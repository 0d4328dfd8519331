package apppassword_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authpress/pkg/apppassword"
	"github.com/dmitrymomot/authpress/pkg/logger"
	"github.com/dmitrymomot/authpress/pkg/pg"
	"github.com/dmitrymomot/authpress/pkg/redis"
)

func exerciseStore(t *testing.T, store apppassword.Store) {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	p := apppassword.Password{Key: "abcde", Description: "cli", Hash: "$2a$04$hash", CreatedAt: created}
	require.NoError(t, store.Insert(ctx, id, p))
	assert.ErrorIs(t, store.Insert(ctx, id, p), apppassword.ErrKeyTaken)
	require.NoError(t, store.Insert(ctx, uuid.New(), p), "keys are per user")

	n, err := store.IncrementCount(ctx, id, "abcde")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = store.IncrementCount(ctx, id, "abcde")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = store.IncrementCount(ctx, id, "missing")
	assert.ErrorIs(t, err, apppassword.ErrNotFound)

	list, err := store.List(ctx, id)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "abcde", list[0].Key)
	assert.Equal(t, "cli", list[0].Description)
	assert.Equal(t, 2, list[0].Count)
	assert.True(t, created.Equal(list[0].CreatedAt))

	require.NoError(t, store.Delete(ctx, id, "abcde"))
	assert.ErrorIs(t, store.Delete(ctx, id, "abcde"), apppassword.ErrNotFound)

	require.NoError(t, store.Insert(ctx, id, apppassword.Password{Key: "fffff"}))
	require.NoError(t, store.DeleteAll(ctx, id))
	list, err = store.List(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func exerciseLog(t *testing.T, log apppassword.AccessLog) {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, ip := range []string{"a", "b", "c", "d"} {
		entry := apppassword.AccessEntry{UserID: id, Key: "k", Time: base.Add(time.Duration(i) * time.Second), IP: ip}
		require.NoError(t, log.Append(ctx, entry, 3))
	}

	entries, err := log.Entries(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"d", "c", "b"}, []string{entries[0].IP, entries[1].IP, entries[2].IP})

	other, err := log.Entries(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, log.Clear(ctx, id))
	entries, err = log.Entries(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	exerciseStore(t, apppassword.NewMemoryStore())
}

func TestMemoryLog(t *testing.T) {
	t.Parallel()
	exerciseLog(t, apppassword.NewMemoryLog())
}

func TestRedisStore(t *testing.T) {
	client, ks := redis.TestClient(t)
	exerciseStore(t, apppassword.NewRedisStore(client, apppassword.WithKeyspace(ks)))
}

func TestRedisLog(t *testing.T) {
	client, ks := redis.TestClient(t)
	exerciseLog(t, apppassword.NewRedisLog(client, apppassword.WithKeyspace(ks)))
}

func TestPostgresLog(t *testing.T) {
	pool := pg.TestPool(t)
	ctx := context.Background()

	cfg := pg.Config{MigrationsTable: "authpress_test_migrations"}
	require.NoError(t, pg.Migrate(ctx, pool, apppassword.Migrations, apppassword.MigrationsDir, cfg, logger.Nop()))

	exerciseLog(t, apppassword.NewPostgresLog(pool))
}
