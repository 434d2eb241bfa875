package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "badger", cfg.Store.Driver)
	assert.Equal(t, "./continuity_db", cfg.Store.URI)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 300, cfg.Scheduler.Interval)
	assert.True(t, cfg.Gateway.Enabled)
	assert.False(t, cfg.CircuitBreaker.Enabled)
	assert.InDelta(t, 0.6, cfg.CircuitBreaker.ReadyToTripRatio, 0.001)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "neo4j")
	t.Setenv("NEO4J_URI", "bolt://db:7687")
	t.Setenv("NEO4J_USER", "neo4j")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SCAN_INTERVAL_SECONDS", "60")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "neo4j", cfg.Store.Driver)
	assert.Equal(t, "bolt://db:7687", cfg.Store.URI)
	assert.Equal(t, "neo4j", cfg.Store.Username)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Scheduler.Interval)
}

func TestLoadIgnoresBadEnvValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	t.Setenv("SCAN_INTERVAL_SECONDS", "-5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 300, cfg.Scheduler.Interval)
}

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteDefault(dir))

	data, err := os.ReadFile(filepath.Join(dir, DefaultConfigFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "store:")

	// an existing file is never clobbered
	assert.Error(t, WriteDefault(dir))
}
