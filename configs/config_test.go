package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

const baseYAML = `
app:
  name: storefront
  env: dev
  log_level: info
api:
  base_url: http://localhost:8080
  timeout: 15s
cart:
  fetch_failure_log_level: warn
checkout:
  success_dwell: 2s
metrics:
  enabled: false
  addr: :9102
`

func TestLoad(t *testing.T) {
	t.Run("base file alone is enough", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "base.yaml", baseYAML)

		cfg, err := Load(dir, "dev")
		require.NoError(t, err)

		assert.Equal(t, "storefront", cfg.App.Name)
		assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
		assert.Equal(t, 15*time.Second, cfg.API.Timeout)
		assert.Equal(t, "warn", cfg.Cart.FetchFailureLogLevel)
		assert.Equal(t, 2*time.Second, cfg.Checkout.SuccessDwell)
	})

	t.Run("environment overlay wins over base", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "base.yaml", baseYAML)
		writeConfig(t, dir, "prod.yaml", "api:\n  base_url: https://shop.example.com\n")

		cfg, err := Load(dir, "prod")
		require.NoError(t, err)
		assert.Equal(t, "https://shop.example.com", cfg.API.BaseURL)
		assert.Equal(t, "storefront", cfg.App.Name)
	})

	t.Run("environment variables win over files", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "base.yaml", baseYAML)
		t.Setenv("STOREFRONT_API__BASE_URL", "https://override.example.com")
		t.Setenv("STOREFRONT_CART__FETCH_FAILURE_LOG_LEVEL", "debug")

		cfg, err := Load(dir, "dev")
		require.NoError(t, err)
		assert.Equal(t, "https://override.example.com", cfg.API.BaseURL)
		assert.Equal(t, "debug", cfg.Cart.FetchFailureLogLevel)
	})

	t.Run("missing base file fails", func(t *testing.T) {
		_, err := Load(t.TempDir(), "dev")
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.API.BaseURL = "http://localhost:8080"
		c.API.Timeout = 10 * time.Second
		return c
	}

	t.Run("accepts a minimal config", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("rejects a missing base url", func(t *testing.T) {
		c := valid()
		c.API.BaseURL = ""
		assert.Error(t, c.Validate())
	})

	t.Run("rejects a non-positive timeout", func(t *testing.T) {
		c := valid()
		c.API.Timeout = 0
		assert.Error(t, c.Validate())
	})

	t.Run("rejects a negative dwell", func(t *testing.T) {
		c := valid()
		c.Checkout.SuccessDwell = -time.Second
		assert.Error(t, c.Validate())
	})

	t.Run("metrics require an address when enabled", func(t *testing.T) {
		c := valid()
		c.Metrics.Enabled = true
		c.Metrics.Addr = ""
		assert.Error(t, c.Validate())
	})
}
