package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfigFile(t, `
api_port: 9000
store: supabase
database:
  driver: postgres
  url: postgres://localhost/userdeck
supabase:
  url: https://proj.supabase.co
  anon_key: anon
  service_role_key: service
jwt:
  secret: super-secret
  algorithm: HS512
  expire_minutes: 15
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.APIPort)
	assert.Equal(t, "supabase", cfg.Store)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/userdeck", cfg.Database.URL)
	assert.Equal(t, "https://proj.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, "anon", cfg.Supabase.AnonKey)
	assert.Equal(t, "service", cfg.Supabase.ServiceRoleKey)
	assert.Equal(t, "super-secret", cfg.JWT.Secret)
	assert.Equal(t, "HS512", cfg.JWT.Algorithm)
	assert.Equal(t, 15, cfg.JWT.ExpireMinutes)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, `jwt:
  secret: super-secret
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.APIPort)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "local", cfg.Store)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "userdeck.db", cfg.Database.URL)
	assert.Equal(t, "HS256", cfg.JWT.Algorithm)
	assert.Equal(t, 30, cfg.JWT.ExpireMinutes)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.APIPort)
	assert.Equal(t, "local", cfg.Store)
}
