package account

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// State is the second-factor record of one user. The zero value is the state
// of a user who never touched 2FA.
type State struct {
	UserID              uuid.UUID
	Secret              string
	Active              bool
	Attempts            int
	RecoveryKey         string
	RecoveryKeyIssuedAt time.Time
}

// HasSecret reports whether a TOTP secret is configured.
func (s State) HasSecret() bool {
	return s.Secret != ""
}

// HasRecoveryKey reports whether a live recovery key exists.
func (s State) HasRecoveryKey() bool {
	return s.RecoveryKey != ""
}

// Store persists account state. Missing records load as the zero State.
//
// CompareAndSwapAttempts must change the counter only if it still equals old.
// ClaimRecoveryKey must reserve key in a global index with an atomic
// insert-if-absent, returning ErrRecoveryKeyTaken when another account holds it,
// and release the account's previous key.
// ConsumeRecoveryKey must check key against the live recovery key and delete
// the whole record in one atomic step, so that at most one caller sees true.
type Store interface {
	Load(ctx context.Context, id uuid.UUID) (State, error)
	SetSecret(ctx context.Context, id uuid.UUID, secret string) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	CompareAndSwapAttempts(ctx context.Context, id uuid.UUID, from, to int) (bool, error)
	ResetAttempts(ctx context.Context, id uuid.UUID) error
	ClaimRecoveryKey(ctx context.Context, id uuid.UUID, key string, issuedAt time.Time) error
	ConsumeRecoveryKey(ctx context.Context, id uuid.UUID, key string) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
