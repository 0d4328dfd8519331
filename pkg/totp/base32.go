package totp

import (
	"fmt"
	"strings"
)

// base32Alphabet is the RFC 4648 alphabet. Index equals the 5-bit value.
const base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// base32Lookup maps an upper-case alphabet byte to its 5-bit value, -1 otherwise.
var base32Lookup = func() [256]int8 {
	var lut [256]int8
	for i := range lut {
		lut[i] = -1
	}
	for i := 0; i < len(base32Alphabet); i++ {
		lut[base32Alphabet[i]] = int8(i)
	}
	return lut
}()

// DecodeBase32 decodes a base32 secret into raw bytes.
// Input is case-insensitive, surrounding whitespace and trailing "=" padding are ignored.
// Bits left over after the last full byte are dropped, so secrets of any length decode.
// Any other character outside the alphabet yields ErrInvalidSecret.
func DecodeBase32(secret string) ([]byte, error) {
	secret = strings.TrimRight(strings.ToUpper(strings.TrimSpace(secret)), "=")

	out := make([]byte, 0, len(secret)*5/8)
	var buffer uint32
	var bits uint

	for i := 0; i < len(secret); i++ {
		v := base32Lookup[secret[i]]
		if v < 0 {
			return nil, fmt.Errorf("%w: unexpected character %q at position %d", ErrInvalidSecret, secret[i], i)
		}

		buffer = buffer<<5 | uint32(v)
		bits += 5

		if bits >= 8 {
			bits -= 8
			out = append(out, byte(buffer>>bits))
			buffer &= 1<<bits - 1
		}
	}

	return out, nil
}

// IsValidSecret reports whether the secret is non-empty and decodes cleanly.
func IsValidSecret(secret string) bool {
	if strings.TrimSpace(secret) == "" {
		return false
	}
	_, err := DecodeBase32(secret)
	return err == nil
}
