package config_test

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/stripekit/pkg/config"
)

type defaultsConfig struct {
	Mode      string        `env:"CFGTEST_DEFAULT_MODE" envDefault:"verify_signature"`
	Tolerance time.Duration `env:"CFGTEST_DEFAULT_TOLERANCE" envDefault:"5m"`
	Live      bool          `env:"CFGTEST_DEFAULT_LIVE" envDefault:"false"`
}

type overrideConfig struct {
	Key string `env:"CFGTEST_OVERRIDE_KEY" envDefault:"sk_test_default"`
}

type requiredConfig struct {
	Secret string `env:"CFGTEST_REQUIRED_SECRET,required"`
}

type cachedConfig struct {
	Value string `env:"CFGTEST_CACHED_VALUE"`
}

type validatedConfig struct {
	Mode string `env:"CFGTEST_VALIDATED_MODE" envDefault:"bogus"`
}

func (c *validatedConfig) Validate() error {
	if c.Mode != "none" {
		return errors.New("unsupported mode")
	}
	return nil
}

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("CFGTEST_DEFAULT_MODE")

	var cfg defaultsConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "verify_signature", cfg.Mode)
	assert.Equal(t, 5*time.Minute, cfg.Tolerance)
	assert.False(t, cfg.Live)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("CFGTEST_OVERRIDE_KEY", "sk_test_123")

	var cfg overrideConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "sk_test_123", cfg.Key)
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("CFGTEST_REQUIRED_SECRET")

	var cfg requiredConfig
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_Cached(t *testing.T) {
	t.Setenv("CFGTEST_CACHED_VALUE", "first")

	var first cachedConfig
	require.NoError(t, config.Load(&first))

	t.Setenv("CFGTEST_CACHED_VALUE", "second")
	var second cachedConfig
	require.NoError(t, config.Load(&second))

	assert.Equal(t, "first", second.Value)
}

func TestLoad_Validate(t *testing.T) {
	os.Unsetenv("CFGTEST_VALIDATED_MODE")

	var cfg validatedConfig
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestLoad_NilPointer(t *testing.T) {
	var cfg *defaultsConfig
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
}

func TestMustLoad(t *testing.T) {
	os.Unsetenv("CFGTEST_REQUIRED_SECRET")

	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}
