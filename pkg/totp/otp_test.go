package totp_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authpress/pkg/totp"
)

// rfcSecret is base32("12345678901234567890"), the RFC 4226/6238 SHA-1 test key.
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestGenerateHOTP_RFC4226(t *testing.T) {
	t.Parallel()

	key := []byte("12345678901234567890")
	want := []int{755224, 287082, 359152, 969429, 338314, 254676, 287922, 162583, 399871, 520489}

	for counter, code := range want {
		assert.Equal(t, code, totp.GenerateHOTP(key, int64(counter), 6), "counter %d", counter)
	}
}

func TestGenerateCode_RFC6238(t *testing.T) {
	t.Parallel()

	tests := []struct {
		unix  int64
		eight string
		six   string
	}{
		{unix: 59, eight: "94287082", six: "287082"},
		{unix: 1111111109, eight: "07081804", six: "081804"},
		{unix: 1111111111, eight: "14050471", six: "050471"},
		{unix: 1234567890, eight: "89005924", six: "005924"},
		{unix: 2000000000, eight: "69279037", six: "279037"},
		{unix: 20000000000, eight: "65353130", six: "353130"},
	}

	for _, tt := range tests {
		t.Run(tt.eight, func(t *testing.T) {
			t.Parallel()
			slice := totp.TimeSlice(time.Unix(tt.unix, 0))

			got, err := totp.GenerateCode(rfcSecret, slice, 8)
			require.NoError(t, err)
			assert.Equal(t, tt.eight, got)

			got, err = totp.GenerateCode(rfcSecret, slice, 6)
			require.NoError(t, err)
			assert.Equal(t, tt.six, got)
		})
	}
}

func TestGenerateCode_Properties(t *testing.T) {
	t.Parallel()

	secret, err := totp.GenerateSecret(16)
	require.NoError(t, err)

	for _, digits := range []int{6, 7, 8} {
		for slice := int64(0); slice < 50; slice++ {
			first, err := totp.GenerateCode(secret, slice, digits)
			require.NoError(t, err)
			second, err := totp.GenerateCode(secret, slice, digits)
			require.NoError(t, err)

			assert.Equal(t, first, second, "deterministic")
			assert.Len(t, first, digits)
			assert.Regexp(t, `^[0-9]+$`, first)
		}
	}
}

func TestGenerateCode_Errors(t *testing.T) {
	t.Parallel()

	_, err := totp.GenerateCode("", 1, 6)
	assert.ErrorIs(t, err, totp.ErrMissingSecret)

	_, err = totp.GenerateCode("NOT-BASE32", 1, 6)
	assert.ErrorIs(t, err, totp.ErrInvalidSecret)

	_, err = totp.GenerateCode(rfcSecret, 1, 0)
	assert.ErrorIs(t, err, totp.ErrInvalidDigits)

	_, err = totp.GenerateCode(rfcSecret, 1, 10)
	assert.ErrorIs(t, err, totp.ErrInvalidDigits)
}

func TestMatchWindow(t *testing.T) {
	t.Parallel()

	const issued = int64(1000)
	code, err := totp.GenerateCode(rfcSecret, issued, 6)
	require.NoError(t, err)

	for _, drift := range []int{0, 1, 2} {
		for current := issued - int64(drift); current <= issued+int64(drift); current++ {
			offset, ok, err := totp.MatchWindow(rfcSecret, code, current, drift, 6)
			require.NoError(t, err)
			assert.True(t, ok, "drift %d current %d", drift, current)
			assert.Equal(t, int(issued-current), offset)
		}

		_, ok, err := totp.MatchWindow(rfcSecret, code, issued-int64(drift)-1, drift, 6)
		require.NoError(t, err)
		assert.False(t, ok, "before window with drift %d", drift)

		_, ok, err = totp.MatchWindow(rfcSecret, code, issued+int64(drift)+1, drift, 6)
		require.NoError(t, err)
		assert.False(t, ok, "after window with drift %d", drift)
	}
}

func TestMatchWindow_RejectsMalformedInput(t *testing.T) {
	t.Parallel()

	_, ok, err := totp.MatchWindow(rfcSecret, "12345", 1, 1, 6)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = totp.MatchWindow("", "123456", 1, 1, 6)
	assert.ErrorIs(t, err, totp.ErrMissingSecret)

	_, _, err = totp.MatchWindow("ABC1", "123456", 1, 1, 6)
	assert.ErrorIs(t, err, totp.ErrInvalidSecret)
}

func TestGetTOTPURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  totp.TOTPParams
		want    string
		wantErr error
	}{
		{
			name: "basic",
			params: totp.TOTPParams{
				Secret:      "JBSWY3DPEHPK3PXP",
				AccountName: "alice",
				Issuer:      "Acme",
			},
			want: "otpauth://totp/Acme:alice?issuer=Acme&secret=JBSWY3DPEHPK3PXP",
		},
		{
			name: "special characters and custom digits",
			params: totp.TOTPParams{
				Secret:      "jbswy3dpehpk3pxp",
				AccountName: "bob smith",
				Issuer:      "Acme & Co",
				Digits:      8,
			},
			want: "otpauth://totp/Acme%20&%20Co:bob%20smith?digits=8&issuer=Acme+%26+Co&secret=JBSWY3DPEHPK3PXP",
		},
		{
			name:    "missing secret",
			params:  totp.TOTPParams{AccountName: "alice", Issuer: "Acme"},
			wantErr: totp.ErrMissingSecret,
		},
		{
			name:    "invalid secret",
			params:  totp.TOTPParams{Secret: "ABC1", AccountName: "alice", Issuer: "Acme"},
			wantErr: totp.ErrInvalidSecret,
		},
		{
			name:    "missing account",
			params:  totp.TOTPParams{Secret: "JBSWY3DPEHPK3PXP", Issuer: "Acme"},
			wantErr: totp.ErrMissingAccountName,
		},
		{
			name:    "missing issuer",
			params:  totp.TOTPParams{Secret: "JBSWY3DPEHPK3PXP", AccountName: "alice"},
			wantErr: totp.ErrMissingIssuer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := totp.GetTOTPURI(tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
