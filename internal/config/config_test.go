package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsToMemoryStore(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("UPSTREAM_TIMEOUT", "5s")
	t.Setenv("UPSTREAM_RPS", "2.5")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, c.StoreDriver)
	assert.Equal(t, "9090", c.ServerPort)
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.InDelta(t, 2.5, c.UpstreamRPS, 0.0001)
	assert.Equal(t, 12*time.Hour, c.SessionTTL)
}

func TestLoadRequiresDSNForPersistentDrivers(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Chdir(t.TempDir())

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingStoreDSN)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_URL", "x")
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_port: "7000"
store_driver: sqlite
database_url: /tmp/popcornview.db
session_ttl: 2h
timeout: 10s
upstream_rps: 4
`), 0o644))

	c, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", c.ServerPort)
	assert.Equal(t, StoreSQLite, c.StoreDriver)
	assert.Equal(t, "/tmp/popcornview.db", c.DatabaseURL)
	assert.Equal(t, 2*time.Hour, c.SessionTTL)
	assert.Equal(t, 10*time.Second, c.Timeout)
	assert.InDelta(t, 4.0, c.UpstreamRPS, 0.0001)
	assert.Equal(t, "PopcornView/1.0", c.UserAgent)
}

func TestEnvFileDoesNotOverrideExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SERVER_PORT=1111\nLOG_LEVEL=debug\n"), 0o644))
	t.Chdir(dir)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("SERVER_PORT", "2222")
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("LOG_LEVEL")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "2222", c.ServerPort)
	assert.Equal(t, "debug", c.LogLevel)
}
