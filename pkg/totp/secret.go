package totp

import (
	"crypto/rand"
	"errors"
)

// DefaultSecretLength is the number of base32 characters in a generated secret.
const DefaultSecretLength = 16

// GenerateSecret returns a random base32 secret of the given length (padding excluded).
// A non-positive length falls back to DefaultSecretLength.
func GenerateSecret(length int) (string, error) {
	if length <= 0 {
		length = DefaultSecretLength
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Join(ErrFailedToGenerateSecretKey, err)
	}

	// 256 is a multiple of 32, so masking the low 5 bits keeps the choice uniform.
	for i, b := range buf {
		buf[i] = base32Alphabet[b&0x1f]
	}

	return string(buf), nil
}
