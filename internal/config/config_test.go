package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/zoning.geojson", cfg.Geo.ZonesPath)
	assert.Equal(t, "data/streets.geojson", cfg.Geo.StreetsPath)
	assert.Equal(t, 120.0, cfg.Resolver.StreetMaxDistanceM)
	assert.Equal(t, "sqlite", cfg.Rules.Driver)
	assert.Equal(t, "feasibility.db", cfg.Rules.SQLitePath)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FEASIBILITY_RULES_DRIVER", "file")
	t.Setenv("FEASIBILITY_RULES_FILE_PATH", "/tmp/rules.yaml")
	t.Setenv("FEASIBILITY_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Rules.Driver)
	assert.Equal(t, "/tmp/rules.yaml", cfg.Rules.FilePath)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "loud", Format: "json"}))
}
