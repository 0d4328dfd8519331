package account

import "errors"

var (
	ErrStorageUnavailable    = errors.New("account store unavailable")
	ErrMaxAttemptsExceeded   = errors.New("maximum login attempts without two-factor setup exceeded")
	ErrAttemptConflict       = errors.New("attempt counter changed concurrently too many times")
	ErrRecoveryKeyTaken      = errors.New("recovery key already assigned")
	ErrNoSecret              = errors.New("two-factor secret not configured")
	ErrNoRecoveryKey         = errors.New("recovery key not configured")
	ErrVerifierNotConfigured = errors.New("password verifier not configured")
	ErrUserRequired          = errors.New("user is required")
)
