// Package apppassword implements per-user application passwords: long random
// secrets, stored only as bcrypt hashes, that let API clients and scripts log
// in without the second factor.
//
// Each password is identified by a short key, the first five hex characters of
// md5(plaintext). If that key is taken for the user, a numeric suffix is added.
// Verify therefore checks the bare key and every suffixed variant.
//
// Successful uses increment a counter and are written to a bounded access log
// (AppPasswordLogMax entries, newest first). Store and AccessLog have memory,
// Redis and (for the log) Postgres implementations. The Postgres table is
// created by the embedded goose migrations in Migrations.
package apppassword
