package account

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	rkeys "github.com/dmitrymomot/authpress/pkg/redis"
	"github.com/dmitrymomot/authpress/pkg/totp"
)

// Hash fields of an account record.
const (
	fieldSecret          = "secret"
	fieldActive          = "active"
	fieldAttempts        = "attempts"
	fieldRecoveryKey     = "recovery_key"
	fieldRecoveryKeyTime = "recovery_key_time"
)

// RedisStore keeps each account in a hash at <prefix>account:<id> and the
// recovery-key uniqueness index in <prefix>recovery:<sha256> string keys.
type RedisStore struct {
	client redis.UniversalClient
	keys   rkeys.Keyspace
	cipher *totp.SecretCipher
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyspace sets the key prefix, authpress: by default.
func WithKeyspace(ks rkeys.Keyspace) RedisOption {
	return func(s *RedisStore) { s.keys = ks }
}

// WithCipher encrypts secrets and recovery keys before they are written.
func WithCipher(c *totp.SecretCipher) RedisOption {
	return func(s *RedisStore) { s.cipher = c }
}

func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, keys: rkeys.NewKeyspace("")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) accountKey(id uuid.UUID) string {
	return s.keys.Key("account", id.String())
}

func (s *RedisStore) indexKey(recoveryKey string) string {
	return s.keys.Key("recovery", recoveryIndex(recoveryKey))
}

func (s *RedisStore) Load(ctx context.Context, id uuid.UUID) (State, error) {
	fields, err := s.client.HGetAll(ctx, s.accountKey(id)).Result()
	if err != nil {
		return State{}, err
	}

	st := State{UserID: id, Active: fields[fieldActive] == "yes"}

	if st.Secret, err = s.open(fields[fieldSecret]); err != nil {
		return State{}, err
	}
	if st.RecoveryKey, err = s.open(fields[fieldRecoveryKey]); err != nil {
		return State{}, err
	}
	if v := fields[fieldAttempts]; v != "" {
		if st.Attempts, err = strconv.Atoi(v); err != nil {
			return State{}, err
		}
	}
	if v := fields[fieldRecoveryKeyTime]; v != "" {
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return State{}, err
		}
		st.RecoveryKeyIssuedAt = time.Unix(sec, 0).UTC()
	}

	return st, nil
}

func (s *RedisStore) SetSecret(ctx context.Context, id uuid.UUID, secret string) error {
	sealed, err := s.seal(secret)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.accountKey(id),
		fieldSecret, sealed,
		fieldActive, "yes",
		fieldAttempts, 0,
	).Err()
}

func (s *RedisStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	v := "no"
	if active {
		v = "yes"
	}
	return s.client.HSet(ctx, s.accountKey(id), fieldActive, v).Err()
}

// CompareAndSwapAttempts runs under WATCH so a concurrent writer aborts the transaction.
func (s *RedisStore) CompareAndSwapAttempts(ctx context.Context, id uuid.UUID, from, to int) (bool, error) {
	key := s.accountKey(id)
	swapped := false

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, fieldAttempts).Int()
		switch {
		case errors.Is(err, redis.Nil):
			current = 0
		case err != nil:
			return err
		}
		if current != from {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldAttempts, to)
			return nil
		})
		if err != nil {
			return err
		}
		swapped = true
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return swapped, nil
}

func (s *RedisStore) ResetAttempts(ctx context.Context, id uuid.UUID) error {
	return s.client.HSet(ctx, s.accountKey(id), fieldAttempts, 0).Err()
}

// ClaimRecoveryKey reserves the index entry first, then swaps the account's key
// under WATCH so a concurrent claim or delete cannot strand the previous entry.
func (s *RedisStore) ClaimRecoveryKey(ctx context.Context, id uuid.UUID, key string, issuedAt time.Time) error {
	idx := s.indexKey(key)
	claimed, err := s.client.SetNX(ctx, idx, id.String(), 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		owner, err := s.client.Get(ctx, idx).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if owner != id.String() {
			return ErrRecoveryKeyTaken
		}
	}

	err = s.swapRecoveryKey(ctx, id, key, issuedAt)
	if err != nil && claimed {
		s.client.Del(ctx, idx)
	}
	return err
}

func (s *RedisStore) swapRecoveryKey(ctx context.Context, id uuid.UUID, key string, issuedAt time.Time) error {
	sealed, err := s.seal(key)
	if err != nil {
		return err
	}

	record := s.accountKey(id)
	for range maxCASRetries {
		err = s.client.Watch(ctx, func(tx *redis.Tx) error {
			previous, err := s.currentRecoveryKey(ctx, tx, id)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, record,
					fieldRecoveryKey, sealed,
					fieldRecoveryKeyTime, issuedAt.Unix(),
				)
				if previous != "" && recoveryIndex(previous) != recoveryIndex(key) {
					pipe.Del(ctx, s.indexKey(previous))
				}
				return nil
			})
			return err
		}, record)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

// ConsumeRecoveryKey deletes the record only if key is still the live recovery
// key when the transaction commits. Losers of a race see false.
func (s *RedisStore) ConsumeRecoveryKey(ctx context.Context, id uuid.UUID, key string) (bool, error) {
	return s.wipe(ctx, id, func(current string) bool {
		return totp.MatchRecoveryKey(key, current)
	})
}

func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.wipe(ctx, id, nil)
	return err
}

// wipe removes the account hash and its recovery index entry under WATCH.
// A non-nil match vetoes the delete when it rejects the current recovery key.
func (s *RedisStore) wipe(ctx context.Context, id uuid.UUID, match func(current string) bool) (bool, error) {
	record := s.accountKey(id)
	var (
		deleted bool
		err     error
	)
	for range maxCASRetries {
		deleted = false
		err = s.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := s.currentRecoveryKey(ctx, tx, id)
			if err != nil {
				return err
			}
			if match != nil && !match(current) {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, record)
				if current != "" {
					pipe.Del(ctx, s.indexKey(current))
				}
				return nil
			})
			if err != nil {
				return err
			}
			deleted = true
			return nil
		}, record)
		if !errors.Is(err, redis.TxFailedErr) {
			return deleted, err
		}
	}
	return false, err
}

type hashReader interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

func (s *RedisStore) currentRecoveryKey(ctx context.Context, r hashReader, id uuid.UUID) (string, error) {
	v, err := r.HGet(ctx, s.accountKey(id), fieldRecoveryKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return s.open(v)
}

func (s *RedisStore) seal(v string) (string, error) {
	if s.cipher == nil || v == "" {
		return v, nil
	}
	return s.cipher.Encrypt(v)
}

func (s *RedisStore) open(v string) (string, error) {
	if s.cipher == nil || v == "" {
		return v, nil
	}
	return s.cipher.Decrypt(v)
}
