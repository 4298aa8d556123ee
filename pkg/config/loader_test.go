package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/config"
)

type streamConfig struct {
	Heartbeat time.Duration `env:"STREAM_HEARTBEAT_INTERVAL" envDefault:"25s"`
	Retry     time.Duration `env:"STREAM_RETRY" envDefault:"3s"`
	Origins   []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

type requiredConfig struct {
	Secret string `env:"JWT_SECRET,required"`
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		cfg, err := config.Load[streamConfig](config.WithEnvironment(map[string]string{}))
		require.NoError(t, err)
		assert.Equal(t, 25*time.Second, cfg.Heartbeat)
		assert.Equal(t, 3*time.Second, cfg.Retry)
		assert.Empty(t, cfg.Origins)
	})

	t.Run("values", func(t *testing.T) {
		t.Parallel()
		cfg, err := config.Load[streamConfig](config.WithEnvironment(map[string]string{
			"STREAM_HEARTBEAT_INTERVAL": "10s",
			"CORS_ALLOWED_ORIGINS":      "https://admin.example.com,https://shop.example.com",
		}))
		require.NoError(t, err)
		assert.Equal(t, 10*time.Second, cfg.Heartbeat)
		assert.Equal(t, []string{"https://admin.example.com", "https://shop.example.com"}, cfg.Origins)
	})

	t.Run("prefix", func(t *testing.T) {
		t.Parallel()
		cfg, err := config.Load[streamConfig](
			config.WithPrefix("NOTIFYHUB_"),
			config.WithEnvironment(map[string]string{"NOTIFYHUB_STREAM_RETRY": "1s", "STREAM_RETRY": "9s"}),
		)
		require.NoError(t, err)
		assert.Equal(t, time.Second, cfg.Retry)
	})

	t.Run("missing required", func(t *testing.T) {
		t.Parallel()
		_, err := config.Load[requiredConfig](config.WithEnvironment(map[string]string{}))
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Parallel()
		_, err := config.Load[streamConfig](config.WithEnvironment(map[string]string{"STREAM_RETRY": "soon"}))
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("missing env file", func(t *testing.T) {
		t.Parallel()
		_, err := config.Load[streamConfig](config.WithEnvFiles(filepath.Join(t.TempDir(), "absent.env")))
		assert.ErrorIs(t, err, config.ErrEnvFile)
	})
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("NOTIFYHUB_TEST_SECRET=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("NOTIFYHUB_TEST_SECRET") })

	type fileConfig struct {
		Secret string `env:"NOTIFYHUB_TEST_SECRET,required"`
	}
	cfg, err := config.Load[fileConfig](config.WithEnvFiles(path))
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Secret)
}

func TestMustLoad(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		config.MustLoad[requiredConfig](config.WithEnvironment(map[string]string{}))
	})
	assert.NotPanics(t, func() {
		cfg := config.MustLoad[requiredConfig](config.WithEnvironment(map[string]string{"JWT_SECRET": "s"}))
		assert.Equal(t, "s", cfg.Secret)
	})
}
