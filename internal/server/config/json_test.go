package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_LoadsFromFile(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, map[string]any{
		"endpoint_addr_http": ":9090",
		"database_dsn":       "postgres://other",
		"check_schedule":     "@every 1m",
		"worker_count":       4,
		"grace_period_days":  7,
		"token_ttl":          "72h",
		"notifier_backend":   "smtp",
		"smtp_host":          "mail.example.com",
		"smtp_port":          587,
		"demo_enabled":       true,
	})
	os.Args = []string{"testbin", "-config", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, ":9090", cfg.EndpointAddrHTTP)
	assert.Equal(t, "postgres://other", cfg.DatabaseDSN)
	assert.Equal(t, "@every 1m", cfg.CheckSchedule)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 7, cfg.GracePeriodDays)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "smtp", cfg.NotifierBackend)
	assert.Equal(t, "mail.example.com", cfg.SMTPHost)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.True(t, cfg.DemoEnabled)
}

func Test_parseJson_PartialFileKeepsDefaults(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, map[string]any{
		"check_schedule": "@every 5m",
	})
	os.Args = []string{"testbin", "-c", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, "@every 5m", cfg.CheckSchedule)
	assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
}

func Test_parseJson_NoFlagIsNoop(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
}
