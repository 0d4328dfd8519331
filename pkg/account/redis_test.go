package account_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authpress/pkg/account"
	"github.com/dmitrymomot/authpress/pkg/redis"
	"github.com/dmitrymomot/authpress/pkg/settings"
	"github.com/dmitrymomot/authpress/pkg/totp"
)

func TestRedisStore(t *testing.T) {
	client, ks := redis.TestClient(t)
	ctx := context.Background()

	key, err := totp.GenerateEncryptionKey()
	require.NoError(t, err)
	cipher, err := totp.NewSecretCipher(key)
	require.NoError(t, err)

	store := account.NewRedisStore(client, account.WithKeyspace(ks), account.WithCipher(cipher))
	svc := account.NewService(store, settings.NewStatic(settings.Defaults()))
	user := newUser()

	enr, err := svc.Enable(ctx, user)
	require.NoError(t, err)

	raw, err := client.HGet(ctx, ks.Key("account", user.ID.String()), "secret").Result()
	require.NoError(t, err)
	assert.NotEqual(t, enr.Secret, raw, "secret is encrypted at rest")

	st, err := svc.Load(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, enr.Secret, st.Secret)
	assert.Equal(t, enr.RecoveryKey, st.RecoveryKey)
	assert.True(t, st.Active)

	other := uuid.New()
	assert.ErrorIs(t, store.ClaimRecoveryKey(ctx, other, enr.RecoveryKey, fixedNow), account.ErrRecoveryKeyTaken)

	var ok atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ConsumeGraceLogin(ctx, user.ID, 3); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(3), ok.Load())

	require.NoError(t, svc.Deactivate(ctx, user.ID))
	st, err = svc.Load(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, account.State{UserID: user.ID}, st)

	assert.NoError(t, store.ClaimRecoveryKey(ctx, other, enr.RecoveryKey, fixedNow), "index released on delete")
}

func TestRedisStore_RecoveryKeyIndex(t *testing.T) {
	client, ks := redis.TestClient(t)
	ctx := context.Background()

	store := account.NewRedisStore(client, account.WithKeyspace(ks))
	svc := account.NewService(store, settings.NewStatic(settings.Defaults()))
	user := newUser()

	_, err := svc.Enable(ctx, user)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.IssueRecoveryKey(ctx, user.ID)
		}()
	}
	wg.Wait()

	st, err := svc.Load(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, st.RecoveryKey)

	entries, err := client.Keys(ctx, ks.Pattern("recovery")).Result()
	require.NoError(t, err)
	assert.Len(t, entries, 1, "concurrent re-issues leave only the live key indexed")

	var used atomic.Int32
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := svc.ConsumeRecoveryKey(ctx, user.ID, st.RecoveryKey); err == nil && ok {
				used.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), used.Load())

	entries, err = client.Keys(ctx, ks.Pattern("recovery")).Result()
	require.NoError(t, err)
	assert.Empty(t, entries)

	exists, err := client.Exists(ctx, ks.Key("account", user.ID.String())).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}
