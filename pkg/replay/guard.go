package replay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/authpress/pkg/logger"
)

// GlobalBucket is the single bucket used when codes are tracked site-wide.
const GlobalBucket = "global"

// Store persists code digests per bucket.
// Add must be an atomic insert-if-absent: of two concurrent calls with the
// same bucket and digest exactly one reports added.
type Store interface {
	Add(ctx context.Context, bucket, digest string) (added bool, err error)
	Contains(ctx context.Context, bucket, digest string) (bool, error)
	Purge(ctx context.Context) error
}

// Guard rejects one-time codes that were already accepted.
type Guard struct {
	store Store
	log   *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the guard's logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.log = l
		}
	}
}

// NewGuard creates a guard over store.
func NewGuard(store Store, opts ...Option) *Guard {
	g := &Guard{store: store, log: logger.Nop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Bucket returns the bucket a code for accountID belongs to.
func Bucket(global bool, accountID string) string {
	if global || accountID == "" {
		return GlobalBucket
	}
	return "account:" + accountID
}

// Digest is the irreversible form codes are stored in.
func Digest(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// IsUsed reports whether code was already consumed in bucket.
func (g *Guard) IsUsed(ctx context.Context, bucket, code string) (bool, error) {
	used, err := g.store.Contains(ctx, bucket, Digest(code))
	if err != nil {
		return false, errors.Join(ErrStoreUnavailable, err)
	}
	return used, nil
}

// MarkUsed records code as consumed without checking whether it already was.
func (g *Guard) MarkUsed(ctx context.Context, bucket, code string) error {
	if _, err := g.store.Add(ctx, bucket, Digest(code)); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// Consume atomically marks code as used. It returns ErrCodeAlreadyUsed when
// the code was consumed before, including by a concurrent caller.
func (g *Guard) Consume(ctx context.Context, bucket, code string) error {
	added, err := g.store.Add(ctx, bucket, Digest(code))
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	if !added {
		return ErrCodeAlreadyUsed
	}
	return nil
}

// Purge forgets every consumed code. Run it on a schedule longer than the
// drift window, daily being the usual choice.
func (g *Guard) Purge(ctx context.Context) error {
	if err := g.store.Purge(ctx); err != nil {
		g.log.ErrorContext(ctx, "replay purge failed", logger.Component("replay"), logger.Error(err))
		return errors.Join(ErrStoreUnavailable, err)
	}
	g.log.InfoContext(ctx, "replay set purged", logger.Component("replay"), logger.Event("purge"))
	return nil
}
