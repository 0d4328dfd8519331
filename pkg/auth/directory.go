package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryDirectory is an in-process UserProvider and PasswordVerifier.
// It backs tests and the CLI's local mode.
type MemoryDirectory struct {
	mu     sync.RWMutex
	hasher Hasher
	byID   map[uuid.UUID]*User
	byName map[string]uuid.UUID
	hashes map[uuid.UUID]string
}

// NewMemoryDirectory creates an empty directory hashing passwords with hasher.
func NewMemoryDirectory(hasher Hasher) *MemoryDirectory {
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	return &MemoryDirectory{
		hasher: hasher,
		byID:   make(map[uuid.UUID]*User),
		byName: make(map[string]uuid.UUID),
		hashes: make(map[uuid.UUID]string),
	}
}

// Add registers a user with a primary password and returns it with a fresh ID.
func (d *MemoryDirectory) Add(username, password string, roles ...string) (*User, error) {
	username = normalizeUsername(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	hash, err := d.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byName[username]; ok {
		return nil, ErrUserAlreadyExists
	}

	u := &User{ID: uuid.New(), Username: username, Roles: roles}
	d.byID[u.ID] = u
	d.byName[username] = u.ID
	d.hashes[u.ID] = hash

	return clone(u), nil
}

func (d *MemoryDirectory) GetUserByUsername(_ context.Context, username string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byName[normalizeUsername(username)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return clone(d.byID[id]), nil
}

func (d *MemoryDirectory) GetUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return clone(u), nil
}

func (d *MemoryDirectory) VerifyPassword(_ context.Context, user *User, password string) error {
	if user == nil {
		return ErrInvalidCredentials
	}

	d.mu.RLock()
	hash, ok := d.hashes[user.ID]
	d.mu.RUnlock()

	if !ok {
		return ErrInvalidCredentials
	}
	return d.hasher.Verify(password, hash)
}

func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func clone(u *User) *User {
	c := *u
	c.Roles = append([]string(nil), u.Roles...)
	return &c
}
