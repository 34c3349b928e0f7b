package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnegaenz/SIS-sub001/shared/common"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "insights-service", cfg.Service.Name)
	assert.Equal(t, 8787, cfg.Server.Port)
	assert.Equal(t, "public/assets/data/fi_registry.json", cfg.Data.RegistryFile)
	assert.Equal(t, "data/daily", cfg.Data.DailyDir)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 5*1024*1024, cfg.Cache.MaxEntryBytes)
	assert.Equal(t, DefaultSSOFIKeys, cfg.Reports.SSOFIKeys)
	assert.Equal(t, []string{"date", "hostName", "pagePath", "hour"}, cfg.Analytics.Dimensions)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Analytics.Enabled())
}

func TestLoadFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: 9000
cache:
  backend: redis
  redis:
    host: cache.internal
reports:
  sso_fi_keys: [alpha, beta]
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))

	t.Setenv("GA_PROPERTY_ID", "123456")
	t.Setenv("GA_KEYFILE", "/secrets/ga.json")
	t.Setenv("SIS_API_BASE", "https://sis.example.com")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "cache.internal:6379", cfg.Cache.Redis.Addr())
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Reports.SSOFIKeys)
	assert.Equal(t, "123456", cfg.Analytics.PropertyID)
	assert.Equal(t, "/secrets/ga.json", cfg.Analytics.KeyFile)
	assert.True(t, cfg.Analytics.Enabled())
	assert.Equal(t, "https://sis.example.com", cfg.Upstream.BaseURL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("cache:\n  backend: disk\n"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, common.ErrCodeValidationFailed))
}
