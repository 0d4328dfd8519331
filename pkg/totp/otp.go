package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultDigits    = 6      // Standard 6-digit TOTP codes
	DefaultPeriod    = 30     // 30-second validity window (RFC 6238 standard)
	DefaultAlgorithm = "SHA1" // HMAC-SHA1 algorithm (RFC 6238 standard)

	maxDigits = 9 // 10^9 still fits the 31-bit truncated value range
)

// TOTPParams contains the parameters for TOTP URI generation
type TOTPParams struct {
	Secret      string // Base32-encoded TOTP secret key (required)
	AccountName string // User identifier like login or email (required)
	Issuer      string // Service name displayed in authenticator apps (required)
	Digits      int    // Number of digits in generated codes (optional, defaults to 6)
}

// Validate ensures all required TOTP parameters are present and valid
func (p TOTPParams) Validate() error {
	if p.Secret == "" {
		return ErrMissingSecret
	}
	if !IsValidSecret(p.Secret) {
		return ErrInvalidSecret
	}
	if p.AccountName == "" {
		return ErrMissingAccountName
	}
	if p.Issuer == "" {
		return ErrMissingIssuer
	}
	if p.Digits != 0 && (p.Digits < 1 || p.Digits > maxDigits) {
		return ErrInvalidDigits
	}
	return nil
}

// GetTOTPURI builds the otpauth:// provisioning URI for authenticator apps:
//
//	otpauth://totp/{issuer}:{account}?issuer={issuer}&secret={secret}
//
// The digits parameter is only emitted when it differs from the default.
func GetTOTPURI(params TOTPParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}

	label := url.PathEscape(params.Issuer) + ":" + url.PathEscape(params.AccountName)

	query := url.Values{}
	query.Set("secret", strings.ToUpper(strings.TrimSpace(params.Secret)))
	query.Set("issuer", params.Issuer)
	if params.Digits != 0 && params.Digits != DefaultDigits {
		query.Set("digits", strconv.Itoa(params.Digits))
	}

	return fmt.Sprintf("otpauth://totp/%s?%s", label, query.Encode()), nil
}

// TimeSlice returns the 30-second counter the given moment falls into.
func TimeSlice(t time.Time) int64 {
	return t.Unix() / DefaultPeriod
}

// GenerateHOTP implements RFC 4226 HMAC-based One-Time Password algorithm.
// The algorithm converts a counter value into a numeric code using HMAC-SHA1.
func GenerateHOTP(key []byte, counter int64, digits int) int {
	msg := make([]byte, 8)
	binary.BigEndian.PutUint64(msg, uint64(counter))

	mac := hmac.New(sha1.New, key)
	mac.Write(msg)
	sum := mac.Sum(nil)

	// Dynamic truncation (RFC 4226): use last 4 bits as offset into hash
	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return int(value % pow10(digits))
}

// GenerateCode derives the zero-padded code for a secret and time-slice.
func GenerateCode(secret string, timeSlice int64, digits int) (string, error) {
	if digits < 1 || digits > maxDigits {
		return "", ErrInvalidDigits
	}
	if strings.TrimSpace(secret) == "" {
		return "", ErrMissingSecret
	}

	key, err := DecodeBase32(secret)
	if err != nil {
		return "", err
	}

	return formatCode(GenerateHOTP(key, timeSlice, digits), digits), nil
}

// MatchWindow checks code against the candidates for time-slices
// [timeSlice-drift, timeSlice+drift], walking offsets in increasing order.
// It returns the offset of the first match; ok is false when nothing matched.
func MatchWindow(secret, code string, timeSlice int64, drift, digits int) (offset int, ok bool, err error) {
	if digits < 1 || digits > maxDigits {
		return 0, false, ErrInvalidDigits
	}
	if drift < 0 {
		drift = 0
	}

	key, err := DecodeBase32(secret)
	if err != nil {
		return 0, false, err
	}
	if len(key) == 0 {
		return 0, false, ErrMissingSecret
	}

	code = strings.TrimSpace(code)
	if len(code) != digits {
		return 0, false, nil
	}

	for i := -drift; i <= drift; i++ {
		candidate := formatCode(GenerateHOTP(key, timeSlice+int64(i), digits), digits)
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(code)) == 1 {
			return i, true, nil
		}
	}

	return 0, false, nil
}

func formatCode(code, digits int) string {
	return fmt.Sprintf("%0*d", digits, code)
}

func pow10(n int) uint32 {
	result := uint32(1)
	for range n {
		result *= 10
	}
	return result
}
