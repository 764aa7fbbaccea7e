package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"SURVEY_CONFIG", "PORT", "ENV", "READ_TIMEOUT", "WRITE_TIMEOUT", "SURVEY_DB_PATH",
	"SURVEY_EXPORT_DIR", "SESSION_TTL_MINUTES", "DEFAULT_LAT", "DEFAULT_LON", "AUTO_CONNECT", "MAP_LAYER", "CORS_ORIGINS",
	"SESSION_RATE", "SESSION_BURST",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 10, cfg.ReadTimeout)
	assert.Equal(t, "data/db/survey.db", cfg.DBPath)
	assert.Equal(t, 240, cfg.SessionTTL)
	assert.Equal(t, 31.6904, cfg.DefaultLat)
	assert.Equal(t, -106.4245, cfg.DefaultLon)
	assert.True(t, cfg.AutoConnect)
	assert.Equal(t, "hybrid", cfg.MapLayer)
	assert.Empty(t, cfg.ExportDir)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 1.0, cfg.SessionRate)
	assert.Equal(t, 10, cfg.SessionBurst)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("READ_TIMEOUT", "30")
	t.Setenv("WRITE_TIMEOUT", "not-a-number")
	t.Setenv("AUTO_CONNECT", "false")
	t.Setenv("DEFAULT_LAT", "19.4326")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("SESSION_BURST", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30, cfg.ReadTimeout)
	assert.Equal(t, 10, cfg.WriteTimeout)
	assert.False(t, cfg.AutoConnect)
	assert.Equal(t, 19.4326, cfg.DefaultLat)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 3, cfg.SessionBurst)
}

func TestLoadFromTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "survey.toml")
	content := `
port = "4000"
env = "field"
session_ttl_minutes = 60
default_lat = 25.6866
default_lon = -100.3161
auto_connect = false
map_layer = "satellite"
export_dir = "/var/lib/survey/exports"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("SURVEY_CONFIG", path)

	t.Run("file values override defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "4000", cfg.Port)
		assert.Equal(t, "field", cfg.Environment)
		assert.Equal(t, 60, cfg.SessionTTL)
		assert.Equal(t, 25.6866, cfg.DefaultLat)
		assert.False(t, cfg.AutoConnect)
		assert.Equal(t, "satellite", cfg.MapLayer)
		assert.Equal(t, "/var/lib/survey/exports", cfg.ExportDir)
		assert.Equal(t, 10, cfg.ReadTimeout)
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("PORT", "5000")
		t.Setenv("MAP_LAYER", "terrain")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "5000", cfg.Port)
		assert.Equal(t, "terrain", cfg.MapLayer)
		assert.Equal(t, "field", cfg.Environment)
	})
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("SURVEY_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("invalid toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("port = [unterminated"), 0o644))
		t.Setenv("SURVEY_CONFIG", path)

		_, err := Load()
		assert.Error(t, err)
	})
}
