// Package redis connects authpress to a Redis server through go-redis.
//
// Connect retries the initial ping according to Config, which is normally
// filled from REDIS_* environment variables with package config. Healthcheck
// adapts a client to a liveness check.
//
// Keyspace keeps every key the replay, account, app-password and settings
// stores write under one prefix (REDIS_KEY_PREFIX, "authpress:" by default):
//
//	ks := redis.NewKeyspace(cfg.KeyPrefix)
//	ks.Key("account", userID) // authpress:account:<id>
//
// TestClient is a helper for store tests; it skips unless REDIS_URL points at
// a reachable server.
package redis
