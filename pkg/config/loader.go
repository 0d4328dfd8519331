package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// cache keeps one parsed copy per (type, prefix) pair.
type cache struct {
	mu     sync.Mutex
	values map[string]any
}

var (
	store = &cache{values: make(map[string]any)}

	dotenvOnce sync.Once
)

// Load parses environment variables into v using `env` struct tags.
// The default .env file is read once per process when present.
// Each configuration type is parsed once; later calls return the cached copy.
//
//	type RedisConfig struct {
//		ConnectionURL string `env:"REDIS_URL,required"`
//	}
//
//	var cfg RedisConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	return LoadWithPrefix(v, "")
}

// LoadWithPrefix works like Load but prepends prefix to every variable name,
// so `env:"MAX_ATTEMPTS"` with prefix "AUTHPRESS_" reads AUTHPRESS_MAX_ATTEMPTS.
func LoadWithPrefix[T any](v *T, prefix string) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		// a missing .env is not an error
		_ = godotenv.Load()
	})

	key := cacheKey[T](prefix)

	store.mu.Lock()
	defer store.mu.Unlock()

	if cached, ok := store.values[key]; ok {
		*v = cached.(T)
		return nil
	}

	var parsed T
	if err := env.ParseWithOptions(&parsed, env.Options{Prefix: prefix}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	store.values[key] = parsed
	*v = parsed
	return nil
}

// MustLoad works like Load but panics on failure.
// Use it for configuration the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// Reset drops every cached configuration. Intended for tests that change the environment.
func Reset() {
	store.mu.Lock()
	store.values = make(map[string]any)
	store.mu.Unlock()
}

func cacheKey[T any](prefix string) string {
	t := reflect.TypeFor[T]()
	return prefix + "|" + t.PkgPath() + "." + t.String()
}
