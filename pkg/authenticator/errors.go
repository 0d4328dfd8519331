package authenticator

import (
	"errors"

	"github.com/dmitrymomot/authpress/pkg/account"
	"github.com/dmitrymomot/authpress/pkg/apppassword"
	"github.com/dmitrymomot/authpress/pkg/auth"
	"github.com/dmitrymomot/authpress/pkg/replay"
	"github.com/dmitrymomot/authpress/pkg/settings"
	"github.com/dmitrymomot/authpress/pkg/totp"
)

var (
	ErrMissingCode = errors.New("one-time code is required")
	ErrEmptyCode   = errors.New("one-time code is empty")
	ErrInvalidCode = errors.New("invalid one-time code")

	// Sentinels shared with the packages that detect them.
	ErrCodeAlreadyUsed      = replay.ErrCodeAlreadyUsed
	ErrMaxAttemptsExceeded  = account.ErrMaxAttemptsExceeded
	ErrWrongAppPassword     = apppassword.ErrWrongAppPassword
	ErrNoCredentialProvided = apppassword.ErrNoCredentialProvided
	ErrInvalidSecret        = totp.ErrInvalidSecret
	ErrInvalidOptions       = settings.ErrInvalidOptions

	ErrStorageUnavailable = errors.New("authentication storage unavailable")
	ErrUserRequired       = errors.New("user is required")
)

// Message returns the reason to show the user for a rejected login.
// Wrong codes and wrong recovery keys share one message.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStorageUnavailable):
		return "Login is temporarily unavailable. Please try again."
	case errors.Is(err, ErrInvalidOptions):
		return "Login is unavailable until an administrator fixes the two-factor settings."
	case errors.Is(err, ErrMissingCode), errors.Is(err, ErrEmptyCode):
		return "Please enter the code from your authenticator app."
	case errors.Is(err, ErrCodeAlreadyUsed):
		return "This code has already been used. Please wait for the next code."
	case errors.Is(err, ErrMaxAttemptsExceeded):
		return "You have reached the maximum number of logins without two-factor authentication. Please contact an administrator."
	case errors.Is(err, ErrInvalidCode), errors.Is(err, ErrInvalidSecret):
		return "The code you entered is not valid."
	case errors.Is(err, ErrWrongAppPassword), errors.Is(err, ErrNoCredentialProvided), errors.Is(err, auth.ErrInvalidCredentials):
		return "Incorrect username or password."
	}
	return "Login failed."
}
