package totp_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authpress/pkg/totp"
)

func TestGenerateRecoveryKey(t *testing.T) {
	t.Parallel()

	for _, length := range []int{1, 12, 24, 40, 64} {
		key, err := totp.GenerateRecoveryKey(length)
		require.NoError(t, err)
		assert.Len(t, key, length)
		assert.Regexp(t, `^[0-9a-f]+$`, key)
	}

	key, err := totp.GenerateRecoveryKey(0)
	require.NoError(t, err)
	assert.Len(t, key, totp.DefaultRecoveryKeyLength)
}

func TestGenerateUniqueRecoveryKey(t *testing.T) {
	t.Parallel()

	t.Run("retries on collision", func(t *testing.T) {
		t.Parallel()
		calls := 0
		key, err := totp.GenerateUniqueRecoveryKey(context.Background(), 24, 5, func(_ context.Context, _ string) error {
			calls++
			if calls < 3 {
				return totp.ErrRecoveryKeyCollision
			}
			return nil
		})
		require.NoError(t, err)
		assert.Len(t, key, 24)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		t.Parallel()
		calls := 0
		_, err := totp.GenerateUniqueRecoveryKey(context.Background(), 24, 4, func(_ context.Context, _ string) error {
			calls++
			return totp.ErrRecoveryKeyCollision
		})
		assert.ErrorIs(t, err, totp.ErrRecoveryKeyCollision)
		assert.Equal(t, 4, calls)
	})

	t.Run("propagates storage errors", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		_, err := totp.GenerateUniqueRecoveryKey(context.Background(), 24, 5, func(_ context.Context, _ string) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
	})
}

func TestNormalizeRecoveryKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "abc123", want: "abc123"},
		{in: "  ABC123  ", want: "abc123"},
		{in: "ab c-1_2!", want: "abc-1_2"},
		{in: "<script>", want: "script"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, totp.NormalizeRecoveryKey(tt.in), tt.in)
	}
}

func TestMatchRecoveryKey(t *testing.T) {
	t.Parallel()

	assert.True(t, totp.MatchRecoveryKey("deadbeef", "deadbeef"))
	assert.True(t, totp.MatchRecoveryKey(" DEADBEEF ", "deadbeef"))
	assert.False(t, totp.MatchRecoveryKey("deadbeee", "deadbeef"))
	assert.False(t, totp.MatchRecoveryKey("", ""))
	assert.False(t, totp.MatchRecoveryKey("!!!", ""))
}
