package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	// an explicit path that does not exist is a read error, not a silent default
	require.Error(t, err)
	assert.Nil(t, cfg)

	empty := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(empty, []byte("log:\n  level: debug\n"), 0o644))
	cfg, err = LoadConfig(empty)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Scheduling.DefaultDuration)
	assert.False(t, cfg.Scheduling.AllowPastBookings)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Storage.SnapshotInterval)
	assert.Equal(t, 8*time.Hour, cfg.JWT.Expiry)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
scheduling:
  default_duration: 20
  location: UTC
storage:
  driver: postgres
database:
  host: db.internal
`), 0o644))

	t.Setenv("MEDIPASS_SERVER_PORT", "9191")
	t.Setenv("MEDIPASS_SCHEDULING_ALLOW_PAST_BOOKINGS", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 20, cfg.Scheduling.DefaultDuration)
	assert.True(t, cfg.Scheduling.AllowPastBookings)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Contains(t, cfg.Database.DSN(), "host=db.internal port=5432")

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 80}, Storage: StorageConfig{Driver: "s3"}}
	assert.Error(t, cfg.Validate())

	cfg.Storage.Driver = "file"
	cfg.Scheduling.Location = "Mars/Olympus"
	assert.Error(t, cfg.Validate())
}
