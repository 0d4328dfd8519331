package apppassword

import (
	"context"
	"embed"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrations holds the goose migrations for PostgresLog. Apply them with
// pg.Migrate(ctx, pool, apppassword.Migrations, apppassword.MigrationsDir, ...).
//
//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"

// PostgresLog stores the access log in the app_password_log table.
type PostgresLog struct {
	pool *pgxpool.Pool
}

func NewPostgresLog(pool *pgxpool.Pool) *PostgresLog {
	return &PostgresLog{pool: pool}
}

// Append inserts the entry and evicts older rows in one transaction.
// A per-user advisory lock keeps concurrent appends from over-trimming.
func (l *PostgresLog) Append(ctx context.Context, entry AccessEntry, limit int) (err error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback(ctx))
		}
	}()

	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, entry.UserID.String()); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO app_password_log (user_id, key_id, accessed_at, ip, user_agent, method)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.UserID, entry.Key, entry.Time, entry.IP, entry.UserAgent, entry.Method,
	)
	if err != nil {
		return err
	}

	if limit > 0 {
		_, err = tx.Exec(ctx,
			`DELETE FROM app_password_log
			 WHERE user_id = $1 AND id NOT IN (
			     SELECT id FROM app_password_log
			     WHERE user_id = $1
			     ORDER BY accessed_at DESC, id DESC
			     LIMIT $2
			 )`,
			entry.UserID, limit,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (l *PostgresLog) Entries(ctx context.Context, userID uuid.UUID) ([]AccessEntry, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT user_id, key_id, accessed_at, ip, user_agent, method
		 FROM app_password_log
		 WHERE user_id = $1
		 ORDER BY accessed_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (AccessEntry, error) {
		var e AccessEntry
		err := row.Scan(&e.UserID, &e.Key, &e.Time, &e.IP, &e.UserAgent, &e.Method)
		return e, err
	})
}

func (l *PostgresLog) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := l.pool.Exec(ctx, `DELETE FROM app_password_log WHERE user_id = $1`, userID)
	return err
}
