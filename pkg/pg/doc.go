// Package pg wires authpress to PostgreSQL through pgx.
//
// Connect builds a pgxpool.Pool from Config (PG_* environment variables) and
// retries until the first ping succeeds. Migrate runs goose migrations from an
// fs.FS, so each package that owns tables ships its schema embedded next to
// the code that queries it:
//
//	//go:embed migrations/*.sql
//	var migrations embed.FS
//
//	err := pg.Migrate(ctx, pool, migrations, "migrations", cfg, log)
//
// IsDuplicateKeyError and IsNotFoundError classify driver errors.
package pg
