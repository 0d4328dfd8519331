package apppassword

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	rkeys "github.com/dmitrymomot/authpress/pkg/redis"
)

// RedisStore keeps app passwords in two hashes per user:
// <prefix>apppw:<id> maps key to the JSON record and
// <prefix>apppw:<id>:count maps key to its use counter.
type RedisStore struct {
	client redis.UniversalClient
	keys   rkeys.Keyspace
}

// RedisOption configures the Redis-backed store and log.
type RedisOption func(*rkeys.Keyspace)

// WithKeyspace sets the key prefix, authpress: by default.
func WithKeyspace(ks rkeys.Keyspace) RedisOption {
	return func(k *rkeys.Keyspace) { *k = ks }
}

func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	ks := rkeys.NewKeyspace("")
	for _, opt := range opts {
		opt(&ks)
	}
	return &RedisStore{client: client, keys: ks}
}

func (s *RedisStore) recordsKey(userID uuid.UUID) string {
	return s.keys.Key("apppw", userID.String())
}

func (s *RedisStore) countsKey(userID uuid.UUID) string {
	return s.keys.Key("apppw", userID.String(), "count")
}

func (s *RedisStore) List(ctx context.Context, userID uuid.UUID) ([]Password, error) {
	pipe := s.client.Pipeline()
	records := pipe.HGetAll(ctx, s.recordsKey(userID))
	counts := pipe.HGetAll(ctx, s.countsKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	out := make([]Password, 0, len(records.Val()))
	for key, raw := range records.Val() {
		var p Password
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode app password %q: %w", key, err)
		}
		p.Key = key
		p.Count, _ = strconv.Atoi(counts.Val()[key])
		out = append(out, p)
	}
	return out, nil
}

// Insert uses HSETNX, so two concurrent inserts of one key cannot both succeed.
func (s *RedisStore) Insert(ctx context.Context, userID uuid.UUID, p Password) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	ok, err := s.client.HSetNX(ctx, s.recordsKey(userID), p.Key, raw).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrKeyTaken
	}
	return nil
}

func (s *RedisStore) IncrementCount(ctx context.Context, userID uuid.UUID, key string) (int, error) {
	exists, err := s.client.HExists(ctx, s.recordsKey(userID), key).Result()
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrNotFound
	}
	n, err := s.client.HIncrBy(ctx, s.countsKey(userID), key, 1).Result()
	return int(n), err
}

func (s *RedisStore) Delete(ctx context.Context, userID uuid.UUID, key string) error {
	pipe := s.client.TxPipeline()
	removed := pipe.HDel(ctx, s.recordsKey(userID), key)
	pipe.HDel(ctx, s.countsKey(userID), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	if removed.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) DeleteAll(ctx context.Context, userID uuid.UUID) error {
	return s.client.Del(ctx, s.recordsKey(userID), s.countsKey(userID)).Err()
}

// RedisLog keeps the access log in a list per user, newest at the head.
type RedisLog struct {
	client redis.UniversalClient
	keys   rkeys.Keyspace
}

func NewRedisLog(client redis.UniversalClient, opts ...RedisOption) *RedisLog {
	ks := rkeys.NewKeyspace("")
	for _, opt := range opts {
		opt(&ks)
	}
	return &RedisLog{client: client, keys: ks}
}

func (l *RedisLog) key(userID uuid.UUID) string {
	return l.keys.Key("apppw", userID.String(), "log")
}

// Append pushes and trims in one MULTI so the list never exceeds limit.
func (l *RedisLog) Append(ctx context.Context, entry AccessEntry, limit int) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	key := l.key(entry.UserID)
	pipe := l.client.TxPipeline()
	pipe.LPush(ctx, key, raw)
	if limit > 0 {
		pipe.LTrim(ctx, key, 0, int64(limit-1))
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (l *RedisLog) Entries(ctx context.Context, userID uuid.UUID) ([]AccessEntry, error) {
	raws, err := l.client.LRange(ctx, l.key(userID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	out := make([]AccessEntry, 0, len(raws))
	for _, raw := range raws {
		var e AccessEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode access entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (l *RedisLog) Clear(ctx context.Context, userID uuid.UUID) error {
	return l.client.Del(ctx, l.key(userID)).Err()
}
