package replay

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	rkeys "github.com/dmitrymomot/authpress/pkg/redis"
)

const purgeBatch = 500

// RedisStore keeps one Redis set per bucket. SADD gives the atomic insert.
type RedisStore struct {
	client redis.UniversalClient
	keys   rkeys.Keyspace
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyspace sets the key prefix, authpress: by default.
func WithKeyspace(ks rkeys.Keyspace) RedisOption {
	return func(s *RedisStore) { s.keys = ks }
}

// WithTTL expires each bucket ttl after its last insert, on top of Purge.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, keys: rkeys.NewKeyspace("")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(bucket string) string {
	return s.keys.Key("replay", bucket)
}

func (s *RedisStore) Add(ctx context.Context, bucket, digest string) (bool, error) {
	key := s.key(bucket)

	if s.ttl <= 0 {
		n, err := s.client.SAdd(ctx, key, digest).Result()
		if err != nil {
			return false, err
		}
		return n == 1, nil
	}

	pipe := s.client.TxPipeline()
	added := pipe.SAdd(ctx, key, digest)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return added.Val() == 1, nil
}

func (s *RedisStore) Contains(ctx context.Context, bucket, digest string) (bool, error) {
	return s.client.SIsMember(ctx, s.key(bucket), digest).Result()
}

// Purge deletes every bucket under the keyspace.
func (s *RedisStore) Purge(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.keys.Pattern("replay"), purgeBatch).Iterator()

	batch := make([]string, 0, purgeBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == purgeBatch {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.client.Del(ctx, batch...).Err()
	}
	return nil
}
