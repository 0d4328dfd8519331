package apppassword

import "errors"

var (
	ErrWrongAppPassword     = errors.New("wrong app password")
	ErrNoCredentialProvided = errors.New("no app password credential provided")
	ErrKeyTaken             = errors.New("app password key already exists")
	ErrNotFound             = errors.New("app password not found")
	ErrKeySpaceExhausted    = errors.New("could not find a free app password key")
	ErrStorageUnavailable   = errors.New("app password store unavailable")
	ErrUserProviderMissing  = errors.New("user provider not configured")
)

// Message returns the user-facing reason for an app-password failure.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStorageUnavailable):
		return "Login is temporarily unavailable. Please try again."
	case errors.Is(err, ErrWrongAppPassword), errors.Is(err, ErrNoCredentialProvided):
		return "Incorrect username or password."
	case errors.Is(err, ErrNotFound):
		return "The app password no longer exists."
	}
	return "App password operation failed."
}
