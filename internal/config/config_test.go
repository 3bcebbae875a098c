package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	for _, key := range []string{
		"PORT", "DEBUG", "TIMEZONE", "STORE_BACKEND", "DB_DRIVER", "DB_PATH",
		"POSTGREST_URL", "POSTGREST_API_KEY", "DEFAULT_USER_ID", "REPORT_ARCHIVE",
		"REPORT_OUTPUT_DIR", "AZURE_STORAGE_ACCOUNT", "AZURE_STORAGE_CONTAINER",
		"TEAMS_WEBHOOK_URL", "NOTIFICATION_EMAIL", "SMTP_HOST", "SMTP_PORT",
		"SMTP_USERNAME", "SMTP_PASSWORD",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "America/Sao_Paulo", cfg.TimeZone)
	assert.Equal(t, "none", cfg.ReportArchive)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, "America/Sao_Paulo", cfg.Location().String())
}

func TestLoad_YAMLThenEnvOverride(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlConfig := []byte(`
port: "9090"
timezone: UTC
store_backend: postgrest
postgrest_url: https://example.supabase.co
default_user_id: owner-1
`)
	require.NoError(t, os.WriteFile(path, yamlConfig, 0644))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "UTC", cfg.TimeZone)
	assert.Equal(t, "postgrest", cfg.StoreBackend)
	assert.Equal(t, "https://example.supabase.co", cfg.PostgRESTURL)
	assert.Equal(t, "owner-1", cfg.DefaultUserID)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "Unknown backend", env: map[string]string{"STORE_BACKEND": "mongo"}},
		{name: "Unknown driver", env: map[string]string{"DB_DRIVER": "postgres"}},
		{name: "Postgrest without URL", env: map[string]string{"STORE_BACKEND": "postgrest"}},
		{name: "Unknown timezone", env: map[string]string{"TIMEZONE": "Mars/Olympus"}},
		{name: "Azure archive without account", env: map[string]string{"REPORT_ARCHIVE": "azure"}},
		{name: "Unknown archive", env: map[string]string{"REPORT_ARCHIVE": "ftp"}},
		{name: "Email without SMTP", env: map[string]string{"NOTIFICATION_EMAIL": "team@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
