package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nobel/timebank/config"
)

func TestLoad_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "1234", cfg.Auth.DefaultPIN)
	assert.Equal(t, time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, ":8080", cfg.Addr())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timebank.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
store:
  driver: memory
log:
  format: console
timezone: America/Sao_Paulo
`), 0o600))
	t.Setenv("TIMEBANK_SERVER_PORT", "9191")
	t.Setenv("TIMEBANK_AUTH_TOKEN_TTL", "30m")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port, "env wins over file")
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "America/Sao_Paulo", cfg.Timezone)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	cfg.Store.Driver = "postgres"
	cfg.Auth.JWTSecret = "short"
	cfg.Timezone = "Mars/Olympus"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.postgres_dsn")
	assert.Contains(t, err.Error(), "jwt_secret")
	assert.Contains(t, err.Error(), "Mars/Olympus")
}
