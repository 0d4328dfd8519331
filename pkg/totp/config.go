package totp

import "github.com/dmitrymomot/authpress/pkg/config"

type Config struct {
	EncryptionKey string `env:"TOTP_ENCRYPTION_KEY"` // Base64 AES-256 key; secrets are stored in clear when empty
}

// LoadConfig reads the TOTP configuration from the environment (and .env when present).
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Enabled reports whether at-rest encryption is configured.
func (c Config) Enabled() bool {
	return c.EncryptionKey != ""
}
