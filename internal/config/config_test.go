package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("IPGUARD_DB_PATH", filepath.Join(t.TempDir(), "data", "ipguard.db"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "X-Forwarded-For", cfg.Security.ForwardHeader)
	assert.True(t, cfg.Geo.Enabled)
	assert.Equal(t, 3*time.Second, cfg.Geo.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Geo.CacheTTL)
	assert.Equal(t, "@hourly", cfg.Anomaly.Schedule)
	assert.Equal(t, time.Hour, cfg.Anomaly.Window)
	assert.Equal(t, 100, cfg.Anomaly.RateThreshold)
	assert.Equal(t, DefaultSensitivePaths, cfg.Anomaly.SensitivePaths)
	assert.Empty(t, cfg.Notify.URLs)
	assert.DirExists(t, filepath.Dir(cfg.DatabasePath))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("IPGUARD_DB_PATH", filepath.Join(t.TempDir(), "ipguard.db"))
	t.Setenv("IPGUARD_ANOMALY_RATE_THRESHOLD", "250")
	t.Setenv("IPGUARD_ANOMALY_SENSITIVE_PATHS", " /admin , ,/debug ")
	t.Setenv("IPGUARD_GEO_ENABLED", "false")
	t.Setenv("IPGUARD_ANOMALY_RUN_TIMEOUT", "30s")
	t.Setenv("IPGUARD_NOTIFY_URLS", "generic://example.com/hook")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.Anomaly.RateThreshold)
	assert.Equal(t, []string{"/admin", "/debug"}, cfg.Anomaly.SensitivePaths)
	assert.False(t, cfg.Geo.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Anomaly.RunTimeout)
	assert.Equal(t, []string{"generic://example.com/hook"}, cfg.Notify.URLs)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("IPGUARD_DB_PATH", filepath.Join(t.TempDir(), "ipguard.db"))
	t.Setenv("IPGUARD_ANOMALY_RATE_THRESHOLD", "lots")
	t.Setenv("IPGUARD_GEO_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Anomaly.RateThreshold)
	assert.Equal(t, 3*time.Second, cfg.Geo.Timeout)
}

func TestLoad_RejectsNonPositiveWindow(t *testing.T) {
	t.Setenv("IPGUARD_DB_PATH", filepath.Join(t.TempDir(), "ipguard.db"))
	t.Setenv("IPGUARD_ANOMALY_WINDOW", "-1h")

	_, err := Load()
	require.Error(t, err)
}
