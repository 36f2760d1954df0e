package orderlens

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", loc.String())
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := writeConfig(t, `{
		"listenAddr": ":9090",
		"driver": "sqlite",
		"dsn": "orders.db",
		"cacheBackend": "sql",
		"sweepInterval": "30s",
		"logLevel": "debug"
	}`)
	t.Setenv("ORDERLENS_LISTEN_ADDR", " :7070 ")
	t.Setenv("ORDERLENS_STRICT_ANALYTICS", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.ListenAddr)
	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.Equal(t, "orders.db", cfg.DSN)
	assert.Equal(t, "orders.db", cfg.cacheDSN())
	assert.Equal(t, Duration(30*time.Second), cfg.SweepInterval)
	assert.True(t, cfg.StrictAnalytics)
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, `{"driver": `))
	assert.Error(t, err)

	t.Setenv("ORDERLENS_SWEEP_INTERVAL", "often")
	_, err = LoadConfig("")
	assert.Error(t, err)
}

func TestConfigValidateReportsEveryProblem(t *testing.T) {
	cfg := Config{
		Driver:          DriverMongo,
		CacheBackend:    CacheBackendSQL,
		SweepInterval:   Duration(-time.Second),
		DisplayTimezone: "Mars/Olympus",
		LogLevel:        "loud",
	}
	err := cfg.Validate()
	require.Error(t, err)

	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	// listenAddr, dsn, mongoDatabase, cacheDSN, sweepInterval, timezone, level
	assert.Len(t, merr.Errors, 7)

	cfg = DefaultConfig()
	cfg.Driver = "oracle"
	cfg.CacheBackend = "redis"
	merr, ok = cfg.Validate().(*multierror.Error)
	require.True(t, ok)
	assert.Len(t, merr.Errors, 2)
}
