package totp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

const (
	AESKeySize = 32 // Required key size for AES-256 (256 bits / 8 = 32 bytes)
)

// SecretCipher seals TOTP secrets and recovery keys before they reach the attribute store.
type SecretCipher struct {
	aead cipher.AEAD
}

// NewSecretCipher creates an AES-256-GCM cipher from a 32-byte key.
func NewSecretCipher(key []byte) (*SecretCipher, error) {
	if len(key) != AESKeySize {
		return nil, ErrInvalidEncryptionKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &SecretCipher{aead: aead}, nil
}

// NewSecretCipherFromConfig decodes the configured key and builds a cipher.
func NewSecretCipherFromConfig(cfg Config) (*SecretCipher, error) {
	key, err := GetEncryptionKey(cfg)
	if err != nil {
		return nil, err
	}
	return NewSecretCipher(key)
}

// Encrypt returns nonce||ciphertext as a base64 string.
func (c *SecretCipher) Encrypt(plainText string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Join(ErrFailedToEncryptSecret, err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *SecretCipher) Decrypt(cipherTextBase64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(cipherTextBase64)
	if err != nil {
		return "", errors.Join(ErrFailedToDecryptSecret, err)
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", errors.Join(ErrFailedToDecryptSecret, ErrInvalidCipherTooShort)
	}

	plain, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", errors.Join(ErrFailedToDecryptSecret, err)
	}

	return string(plain), nil
}

// EncryptSecret encrypts the TOTP secret using AES-256-GCM.
// Returns the ciphertext as a base64-encoded string.
func EncryptSecret(plainText string, key []byte) (string, error) {
	c, err := NewSecretCipher(key)
	if err != nil {
		return "", errors.Join(ErrFailedToEncryptSecret, err)
	}
	return c.Encrypt(plainText)
}

// DecryptSecret decrypts the encrypted TOTP secret.
// Expects the ciphertext as a base64-encoded string.
func DecryptSecret(cipherTextBase64 string, key []byte) (string, error) {
	c, err := NewSecretCipher(key)
	if err != nil {
		return "", errors.Join(ErrFailedToDecryptSecret, err)
	}
	return c.Decrypt(cipherTextBase64)
}

// GenerateEncryptionKey creates a new random 32-byte key suitable for AES-256 encryption.
func GenerateEncryptionKey() ([]byte, error) {
	key := make([]byte, AESKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Join(ErrFailedToGenerateEncryptionKey, err)
	}
	return key, nil
}

// GenerateEncodedEncryptionKey returns a new key base64-encoded, ready for TOTP_ENCRYPTION_KEY.
func GenerateEncodedEncryptionKey() (string, error) {
	key, err := GenerateEncryptionKey()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// GetEncryptionKey decodes the encryption key from the configuration.
// The key must be a 32-byte base64-encoded string.
func GetEncryptionKey(cfg Config) ([]byte, error) {
	if cfg.EncryptionKey == "" {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, ErrEncryptionKeyNotSet)
	}

	key, err := base64.StdEncoding.DecodeString(cfg.EncryptionKey)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, err)
	}

	if len(key) != AESKeySize {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, ErrInvalidEncryptionKeyLength)
	}

	return key, nil
}
