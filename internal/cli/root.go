// Package cli implements the authpress operator commands.
package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/authpress/pkg/account"
	"github.com/dmitrymomot/authpress/pkg/config"
	"github.com/dmitrymomot/authpress/pkg/logger"
	"github.com/dmitrymomot/authpress/pkg/pg"
	"github.com/dmitrymomot/authpress/pkg/redis"
	"github.com/dmitrymomot/authpress/pkg/settings"
	"github.com/dmitrymomot/authpress/pkg/totp"
)

// app holds what commands share. Connections are opened on first use so
// offline commands (keygen, code, uri) need no Redis or Postgres.
type app struct {
	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger

	rdb   *goredis.Client
	keys  redis.Keyspace
	pool  *pgxpool.Pool
	pgCfg pg.Config
}

func NewRootCommand() *cobra.Command {
	return NewRootCommandWithIO(os.Stdout, os.Stderr)
}

func NewRootCommandWithIO(out, errOut io.Writer) *cobra.Command {
	a := &app{stdout: out, stderr: errOut, log: logger.Nop()}

	cmd := &cobra.Command{
		Use:           "authpress",
		Short:         "Operate the authpress two-factor stores",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			l, err := logger.FromEnv(logger.WithOutput(a.stderr))
			if err != nil {
				return err
			}
			a.log = l
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.AddCommand(
		newKeygenCmd(a),
		newCodeCmd(a),
		newURICmd(a),
		newPurgeCodesCmd(a),
		newMigrateCmd(a),
		newResetAttemptsCmd(a),
		newDeactivateCmd(a),
		newSettingsCmd(a),
		newHealthCmd(a),
	)
	return cmd
}

func (a *app) redis(ctx context.Context) (*goredis.Client, redis.Keyspace, error) {
	if a.rdb != nil {
		return a.rdb, a.keys, nil
	}
	var cfg redis.Config
	if err := config.Load(&cfg); err != nil {
		return nil, "", err
	}
	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		return nil, "", err
	}
	a.rdb, a.keys = client, redis.NewKeyspace(cfg.KeyPrefix)
	return a.rdb, a.keys, nil
}

func (a *app) postgres(ctx context.Context) (*pgxpool.Pool, pg.Config, error) {
	if a.pool != nil {
		return a.pool, a.pgCfg, nil
	}
	var cfg pg.Config
	if err := config.Load(&cfg); err != nil {
		return nil, pg.Config{}, err
	}
	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return nil, pg.Config{}, err
	}
	a.pool, a.pgCfg = pool, cfg
	return a.pool, a.pgCfg, nil
}

// settingsProvider overlays the Redis options hash onto AUTHPRESS_* defaults.
func (a *app) settingsProvider(ctx context.Context) (*settings.RedisProvider, error) {
	fallback, err := settings.FromEnv()
	if err != nil {
		return nil, err
	}
	client, keys, err := a.redis(ctx)
	if err != nil {
		return nil, err
	}
	return settings.NewRedisProvider(client, fallback, settings.WithRedisKey(keys.Key("options"))), nil
}

func (a *app) accounts(ctx context.Context) (*account.Service, error) {
	provider, err := a.settingsProvider(ctx)
	if err != nil {
		return nil, err
	}
	client, keys, err := a.redis(ctx)
	if err != nil {
		return nil, err
	}

	opts := []account.RedisOption{account.WithKeyspace(keys)}
	totpCfg, err := totp.LoadConfig()
	if err != nil {
		return nil, err
	}
	if totpCfg.Enabled() {
		cipher, err := totp.NewSecretCipherFromConfig(totpCfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, account.WithCipher(cipher))
	}

	store := account.NewRedisStore(client, opts...)
	return account.NewService(store, provider, account.WithLogger(a.log)), nil
}

func (a *app) close() {
	var errs []error
	if a.rdb != nil {
		errs = append(errs, a.rdb.Close())
		a.rdb = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Error("failed to close connections", logger.Error(err))
	}
}
