package totp

import (
	"context"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

const (
	// DefaultRecoveryKeyLength is the length of recovery keys and app passwords.
	DefaultRecoveryKeyLength = 24

	// DefaultRecoveryKeyAttempts bounds regeneration when a key collides.
	DefaultRecoveryKeyAttempts = 5
)

// KeyClaimFunc tries to reserve a freshly generated key. It must return
// ErrRecoveryKeyCollision when the key is already in use so a new one is drawn.
type KeyClaimFunc func(ctx context.Context, key string) error

// GenerateRecoveryKey returns a lowercase hex key of the given length built from
// chained SHA-1 digests over the high-resolution clock and 16 random bytes.
func GenerateRecoveryKey(length int) (string, error) {
	if length <= 0 {
		length = DefaultRecoveryKeyLength
	}

	var sb strings.Builder
	sb.Grow(length + sha1.Size*2)

	seed := make([]byte, 8+16)
	for sb.Len() < length {
		binary.BigEndian.PutUint64(seed[:8], uint64(time.Now().UnixNano()))
		if _, err := rand.Read(seed[8:]); err != nil {
			return "", errors.Join(ErrFailedToGenerateRecoveryCode, err)
		}
		sum := sha1.Sum(seed)
		sb.WriteString(hex.EncodeToString(sum[:]))
	}

	return sb.String()[:length], nil
}

// GenerateUniqueRecoveryKey draws keys until claim accepts one.
// It gives up with ErrRecoveryKeyCollision after attempts collisions.
func GenerateUniqueRecoveryKey(ctx context.Context, length, attempts int, claim KeyClaimFunc) (string, error) {
	if attempts <= 0 {
		attempts = DefaultRecoveryKeyAttempts
	}

	for range attempts {
		key, err := GenerateRecoveryKey(length)
		if err != nil {
			return "", err
		}

		err = claim(ctx, key)
		switch {
		case err == nil:
			return key, nil
		case errors.Is(err, ErrRecoveryKeyCollision):
			continue
		default:
			return "", err
		}
	}

	return "", ErrRecoveryKeyCollision
}

// NormalizeRecoveryKey lowercases the key and drops every character
// outside [a-z0-9_-], the same shape keys are issued in.
func NormalizeRecoveryKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return -1
	}, key)
}

// HashRecoveryCode creates a SHA-256 hash for indexing recovery keys without storing them in the index.
func HashRecoveryCode(code string) string {
	hash := sha256.Sum256([]byte(code))
	return hex.EncodeToString(hash[:])
}

// MatchRecoveryKey compares a submitted value with the stored key after normalizing both.
// An empty stored key never matches.
func MatchRecoveryKey(submitted, stored string) bool {
	stored = NormalizeRecoveryKey(stored)
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(NormalizeRecoveryKey(submitted)), []byte(stored)) == 1
}
