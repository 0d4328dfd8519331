package config_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authpress/pkg/config"
)

type defaultsConfig struct {
	Name    string `env:"CFG_TEST_NAME" envDefault:"authpress"`
	Retries int    `env:"CFG_TEST_RETRIES" envDefault:"3"`
	Enabled bool   `env:"CFG_TEST_ENABLED" envDefault:"true"`
}

type requiredConfig struct {
	Value string `env:"CFG_TEST_REQUIRED,required"`
}

type prefixedConfig struct {
	MaxAttempts int      `env:"MAX_ATTEMPTS" envDefault:"3"`
	Roles       []string `env:"ROLES" envSeparator:","`
}

func TestLoad(t *testing.T) {
	config.Reset()
	t.Setenv("CFG_TEST_NAME", "custom")
	t.Setenv("CFG_TEST_RETRIES", "7")

	var cfg defaultsConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "custom", cfg.Name)
	assert.Equal(t, 7, cfg.Retries)
	assert.True(t, cfg.Enabled)
}

func TestLoad_Cached(t *testing.T) {
	config.Reset()
	t.Setenv("CFG_TEST_NAME", "first")

	var first defaultsConfig
	require.NoError(t, config.Load(&first))

	t.Setenv("CFG_TEST_NAME", "second")
	var second defaultsConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "first", second.Name)

	config.Reset()
	var third defaultsConfig
	require.NoError(t, config.Load(&third))
	assert.Equal(t, "second", third.Name)
}

func TestLoad_Required(t *testing.T) {
	config.Reset()

	var cfg requiredConfig
	err := config.Load(&cfg)
	require.ErrorIs(t, err, config.ErrParsingConfig)

	t.Setenv("CFG_TEST_REQUIRED", "present")
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "present", cfg.Value)
}

func TestLoad_NilPointer(t *testing.T) {
	var cfg *defaultsConfig
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
}

func TestLoadWithPrefix(t *testing.T) {
	config.Reset()
	t.Setenv("CFG_A_MAX_ATTEMPTS", "5")
	t.Setenv("CFG_A_ROLES", "admin,editor")
	t.Setenv("CFG_B_MAX_ATTEMPTS", "-1")

	var a, b prefixedConfig
	require.NoError(t, config.LoadWithPrefix(&a, "CFG_A_"))
	require.NoError(t, config.LoadWithPrefix(&b, "CFG_B_"))

	assert.Equal(t, 5, a.MaxAttempts)
	assert.Equal(t, []string{"admin", "editor"}, a.Roles)
	assert.Equal(t, -1, b.MaxAttempts)
	assert.Empty(t, b.Roles)
}

func TestMustLoad(t *testing.T) {
	config.Reset()
	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}

func TestLoad_Concurrent(t *testing.T) {
	config.Reset()
	t.Setenv("CFG_TEST_NAME", "shared")

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var cfg defaultsConfig
			assert.NoError(t, config.Load(&cfg))
			assert.Equal(t, "shared", cfg.Name)
		}()
	}
	wg.Wait()
}
