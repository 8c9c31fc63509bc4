package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, time.Hour, cfg.DashboardCacheTTL)
	assert.Equal(t, 587, cfg.MailPort)
	assert.Equal(t, time.Minute, cfg.CampaignTick)
	assert.Equal(t, 5*time.Minute, cfg.ReminderTick)
	assert.Equal(t, 24*time.Hour, cfg.ReminderWindow)
	assert.Equal(t, 10, cfg.ExportRatePerMin)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.MailEnabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLITE")
	t.Setenv("DASHBOARD_CACHE_TTL", "15m")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("EXPORT_RATE_PER_MIN", "3")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 15*time.Minute, cfg.DashboardCacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, 3, cfg.ExportRatePerMin)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CRM_TEST_ONLY_KEY=1\nMAIL_HOST=smtp.test\nMAIL_FROM=crm@test\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("CRM_TEST_ONLY_KEY")
		os.Unsetenv("MAIL_HOST")
		os.Unsetenv("MAIL_FROM")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "smtp.test", cfg.MailHost)
	assert.True(t, cfg.MailEnabled())
}

func TestValidate(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("AUTH_SECRET", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "AUTH_SECRET")

	cfg.DatabaseURL = "file:crm.db"
	cfg.AuthSecret = "secret"
	assert.NoError(t, cfg.Validate())

	cfg.DBDriver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg.DBDriver = "sqlite"
	cfg.CampaignTick = 0
	assert.Error(t, cfg.Validate())
}
