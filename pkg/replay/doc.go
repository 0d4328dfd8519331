// Package replay makes accepted one-time codes single-use.
//
// A Guard stores the SHA-256 digest of every consumed code in a bucket. By
// default each account has its own bucket, so the numerically identical code
// of two different accounts does not collide; Bucket(true, id) collapses all
// accounts into one site-wide bucket.
//
//	guard := replay.NewGuard(replay.NewRedisStore(client))
//	err := guard.Consume(ctx, replay.Bucket(false, userID), code)
//	if errors.Is(err, replay.ErrCodeAlreadyUsed) {
//	    // reject
//	}
//
// Consume relies on the store's atomic insert-if-absent, so two concurrent
// submissions of one code cannot both succeed. Digests are never expired one
// by one: Purge clears everything and is meant to run daily from a scheduler
// (see the purge-codes CLI command).
package replay
