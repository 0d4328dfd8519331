package auth_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authpress/pkg/auth"
)

func TestBcryptHasher(t *testing.T) {
	t.Parallel()

	h := auth.NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	again, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes are salted")

	assert.NoError(t, h.Verify("correct horse", hash))
	assert.ErrorIs(t, h.Verify("wrong horse", hash), auth.ErrInvalidCredentials)
	assert.ErrorIs(t, h.Verify("correct horse", "not-a-hash"), auth.ErrInvalidCredentials)

	_, err = h.Hash("")
	assert.ErrorIs(t, err, auth.ErrPasswordRequired)
}

func TestMemoryDirectory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := auth.NewMemoryDirectory(auth.NewBcryptHasher(bcrypt.MinCost))

	alice, err := dir.Add(" Alice ", "pw-alice", "editor")
	require.NoError(t, err)
	assert.Equal(t, "alice", alice.Username)
	assert.NotEqual(t, uuid.Nil, alice.ID)

	_, err = dir.Add("alice", "other")
	assert.ErrorIs(t, err, auth.ErrUserAlreadyExists)

	_, err = dir.Add("  ", "pw")
	assert.ErrorIs(t, err, auth.ErrUsernameRequired)

	byName, err := dir.GetUserByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)

	byID, err := dir.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"editor"}, byID.Roles)

	_, err = dir.GetUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
	_, err = dir.GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	assert.NoError(t, dir.VerifyPassword(ctx, alice, "pw-alice"))
	assert.ErrorIs(t, dir.VerifyPassword(ctx, alice, "nope"), auth.ErrInvalidCredentials)
	assert.ErrorIs(t, dir.VerifyPassword(ctx, &auth.User{ID: uuid.New()}, "pw-alice"), auth.ErrInvalidCredentials)
	assert.ErrorIs(t, dir.VerifyPassword(ctx, nil, "pw-alice"), auth.ErrInvalidCredentials)
}

func TestUser_HasAnyRole(t *testing.T) {
	t.Parallel()

	u := &auth.User{Roles: []string{"Editor", "author"}}

	tests := []struct {
		name  string
		roles []string
		want  bool
	}{
		{name: "exact", roles: []string{"author"}, want: true},
		{name: "case-insensitive", roles: []string{"editor"}, want: true},
		{name: "one of many", roles: []string{"admin", " author "}, want: true},
		{name: "none", roles: []string{"admin"}, want: false},
		{name: "empty list", roles: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, u.HasAnyRole(tt.roles...))
		})
	}
}
