package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	t.Setenv("CC_SERVER_HTTP_ADDR", ":9999")
	cfg, err := Load("", true)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.HTTPAddr)
	assert.Equal(t, "0 */6 * * *", cfg.Cron.ExpirationSpec)
	assert.Equal(t, "0 3 * * *", cfg.Cron.VerificationSpec)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, time.Second, cfg.Retry.InitialDelay)
	assert.Equal(t, 10*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 30, cfg.Capture.SyncLogRetentionDays)
	assert.NotNil(t, cfg.Platforms)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
platforms:
  gatry:
    base_url: http://feeds.local/gatry
    timeout: 3s
retry:
  max_retries: 5
`), 0o600))

	cfg, err := Load(path, false)
	require.NoError(t, err)
	require.Contains(t, cfg.Platforms, "gatry")
	assert.Equal(t, "http://feeds.local/gatry", cfg.Platforms["gatry"].BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Platforms["gatry"].Timeout)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false)
	assert.Error(t, err)
}
