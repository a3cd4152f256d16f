package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/experimentkit/pkg/config"
)

type storeTestConfig struct {
	URL           string        `env:"TEST_STORE_URL" envDefault:"redis://localhost:6379/0"`
	RetryAttempts int           `env:"TEST_STORE_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"TEST_STORE_RETRY_INTERVAL" envDefault:"5s"`
	Streams       []string      `env:"TEST_STORE_STREAMS" envSeparator:","`
}

type requiredTestConfig struct {
	Token string `env:"TEST_REQUIRED_TOKEN,required"`
}

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		var cfg storeTestConfig
		require.NoError(t, config.Load(&cfg))

		assert.Equal(t, "redis://localhost:6379/0", cfg.URL)
		assert.Equal(t, 3, cfg.RetryAttempts)
		assert.Equal(t, 5*time.Second, cfg.RetryInterval)
		assert.Empty(t, cfg.Streams)
	})

	t.Run("EnvironmentOverrides", func(t *testing.T) {
		t.Setenv("TEST_STORE_URL", "redis://cache:6380/1")
		t.Setenv("TEST_STORE_RETRY_ATTEMPTS", "7")
		t.Setenv("TEST_STORE_STREAMS", "a,b,c")

		var cfg storeTestConfig
		require.NoError(t, config.Load(&cfg))

		assert.Equal(t, "redis://cache:6380/1", cfg.URL)
		assert.Equal(t, 7, cfg.RetryAttempts)
		assert.Equal(t, []string{"a", "b", "c"}, cfg.Streams)
	})

	t.Run("MissingRequired", func(t *testing.T) {
		var cfg requiredTestConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("NilPointer", func(t *testing.T) {
		err := config.Load[storeTestConfig](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})
}

func TestMustLoad(t *testing.T) {
	t.Run("PanicsOnMissingRequired", func(t *testing.T) {
		assert.Panics(t, func() {
			var cfg requiredTestConfig
			config.MustLoad(&cfg)
		})
	})
}

func TestLoadEnv(t *testing.T) {
	t.Run("NoPathsIsNoop", func(t *testing.T) {
		assert.NoError(t, config.LoadEnv())
	})

	t.Run("MissingFile", func(t *testing.T) {
		err := config.LoadEnv("testdata/does-not-exist.env")
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrLoadingEnvFiles)
	})
}
