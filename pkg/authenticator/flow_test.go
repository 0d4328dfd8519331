package authenticator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authpress/pkg/account"
	"github.com/dmitrymomot/authpress/pkg/apppassword"
	"github.com/dmitrymomot/authpress/pkg/auth"
	"github.com/dmitrymomot/authpress/pkg/authenticator"
	"github.com/dmitrymomot/authpress/pkg/replay"
	"github.com/dmitrymomot/authpress/pkg/settings"
)

func TestFlow_Login(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	hasher := auth.NewBcryptHasher(4)
	dir := auth.NewMemoryDirectory(hasher)
	alice, err := dir.Add("alice", "correct horse")
	require.NoError(t, err)
	bob, err := dir.Add("bob", "battery staple")
	require.NoError(t, err)

	provider := settings.NewStatic(settings.Defaults())
	clock := func() time.Time { return fixedNow }
	store := account.NewMemoryStore()
	accounts := account.NewService(store, provider, account.WithClock(clock))
	engine := authenticator.New(accounts, replay.NewGuard(replay.NewMemoryStore()), provider, authenticator.WithClock(clock))
	apps := apppassword.NewService(apppassword.NewMemoryStore(), apppassword.WithHasher(hasher))

	flow := authenticator.NewFlow(dir, dir, engine, authenticator.WithAppPasswords(apps))

	require.NoError(t, store.SetSecret(ctx, alice.ID, demoSecret))
	appPW, err := apps.Create(ctx, alice.ID, "mail client")
	require.NoError(t, err)

	t.Run("unknown user", func(t *testing.T) {
		_, err := flow.Login(ctx, authenticator.Credentials{Username: "mallory", Password: "x"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := flow.Login(ctx, authenticator.Credentials{Username: "bob", Password: "nope"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("no second factor", func(t *testing.T) {
		res, err := flow.Login(ctx, authenticator.Credentials{Username: "bob", Password: "battery staple"})
		require.NoError(t, err)
		assert.Equal(t, bob.ID, res.User.ID)
		assert.Equal(t, authenticator.MethodNone, res.Method)
	})

	t.Run("code required", func(t *testing.T) {
		_, err := flow.Login(ctx, authenticator.Credentials{Username: "alice", Password: "correct horse"})
		assert.ErrorIs(t, err, authenticator.ErrMissingCode)
	})

	t.Run("password and code", func(t *testing.T) {
		res, err := flow.Login(ctx, authenticator.Credentials{
			Username: "alice",
			Password: "correct horse",
			Code:     ptr(codeAt(t, demoSecret, 0)),
		})
		require.NoError(t, err)
		assert.Equal(t, authenticator.MethodTOTP, res.Method)
	})

	t.Run("app password from browser is refused", func(t *testing.T) {
		_, err := flow.Login(ctx, authenticator.Credentials{Username: "alice", Password: appPW.Plaintext})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("app password from api client", func(t *testing.T) {
		res, err := flow.Login(ctx, authenticator.Credentials{
			Username: "alice",
			Password: appPW.Plaintext,
			API:      true,
			IP:       "192.0.2.10",
			Method:   "xmlrpc",
		})
		require.NoError(t, err)
		assert.Equal(t, authenticator.MethodAppPassword, res.Method)
		assert.Equal(t, authenticator.RequiredWithSecret, res.State)

		last, ok, err := apps.LastAccess(ctx, alice.ID, appPW.Key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "192.0.2.10", last.IP)
	})

	t.Run("unknown app password from api client", func(t *testing.T) {
		_, err := flow.Login(ctx, authenticator.Credentials{Username: "alice", Password: "not-an-app-password", API: true})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestFlow_AppPasswordsEverywhere(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	hasher := auth.NewBcryptHasher(4)
	dir := auth.NewMemoryDirectory(hasher)
	alice, err := dir.Add("alice", "correct horse")
	require.NoError(t, err)

	provider := settings.NewStatic(settings.Defaults())
	engine := authenticator.New(account.NewService(account.NewMemoryStore(), provider),
		replay.NewGuard(replay.NewMemoryStore()), provider)
	apps := apppassword.NewService(apppassword.NewMemoryStore(), apppassword.WithHasher(hasher))
	appPW, err := apps.Create(ctx, alice.ID, "desktop sync")
	require.NoError(t, err)

	tests := []struct {
		name    string
		opts    []authenticator.FlowOption
		wantErr error
	}{
		{
			name:    "api only by default",
			opts:    []authenticator.FlowOption{authenticator.WithAppPasswords(apps)},
			wantErr: auth.ErrInvalidCredentials,
		},
		{
			name: "any client when enabled",
			opts: []authenticator.FlowOption{authenticator.WithAppPasswords(apps), authenticator.WithAppPasswordsEverywhere()},
		},
		{
			name:    "no app password service",
			opts:    []authenticator.FlowOption{authenticator.WithAppPasswordsEverywhere()},
			wantErr: auth.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := authenticator.NewFlow(dir, dir, engine, tt.opts...)
			res, err := flow.Login(ctx, authenticator.Credentials{Username: "alice", Password: appPW.Plaintext})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, authenticator.MethodAppPassword, res.Method)
			assert.Equal(t, alice.ID, res.User.ID)
		})
	}
}
