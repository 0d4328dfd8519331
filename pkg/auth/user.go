package auth

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// User is the identity the host system already knows about.
// Second-factor state is stored separately, keyed by ID.
type User struct {
	ID       uuid.UUID
	Username string
	Email    string
	Roles    []string
}

// HasAnyRole reports whether the user holds at least one of roles (case-insensitive).
func (u *User) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if slices.ContainsFunc(u.Roles, func(own string) bool {
			return strings.EqualFold(strings.TrimSpace(own), strings.TrimSpace(r))
		}) {
			return true
		}
	}
	return false
}

// UserProvider resolves identities. Implementations return ErrUserNotFound for unknown users.
type UserProvider interface {
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// PasswordVerifier checks the primary credential.
// It returns ErrInvalidCredentials when the password does not match.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, user *User, password string) error
}
