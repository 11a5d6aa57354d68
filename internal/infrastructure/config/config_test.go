package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)

	// Frame config
	assert.Equal(t, "http://localhost:8001", cfg.Frame.Origin)
	assert.Equal(t, "javascript", cfg.Frame.Language)
	assert.Equal(t, 4, cfg.Frame.IndentWidth)
	assert.True(t, cfg.Frame.Writable)

	// Sandbox config
	assert.True(t, cfg.Sandbox.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Sandbox.Timeout)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":             "9000",
		"HOST":             "127.0.0.1",
		"CORS_ORIGINS":     "https://a.example.com,https://b.example.com",
		"FRAME_ORIGIN":     "https://sandbox.example.com",
		"FRAME_LANGUAGE":   "glowscript",
		"FRAME_INDENT":     "2",
		"SANDBOX_ENABLED":  "false",
		"SANDBOX_TIMEOUT":  "250ms",
		"LOG_LEVEL":        "debug",
		"LOG_DEV":          "true",
		"RATE_LIMIT_RPS":   "500",
		"RATE_LIMIT_BURST": "1000",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "https://sandbox.example.com", cfg.Frame.Origin)
	assert.Equal(t, "glowscript", cfg.Frame.Language)
	assert.Equal(t, 2, cfg.Frame.IndentWidth)
	assert.False(t, cfg.Sandbox.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Sandbox.Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
}

func TestLoadOrDefaultOnInvalidValue(t *testing.T) {
	t.Setenv("FRAME_INDENT", "four")

	_, err := Load()
	assert.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, 4, cfg.Frame.IndentWidth)
}

func TestParseProfiles(t *testing.T) {
	yamlData := []byte(`
profiles:
  glowscript:
    origin: https://sandbox.example.com
    language: glowscript
    indent_width: 2
    writable: true
  plain:
    origin: https://other.example.com
`)
	tomlData := []byte(`
[profiles.glowscript]
origin = "https://sandbox.example.com"
language = "glowscript"
indent_width = 2
writable = true

[profiles.plain]
origin = "https://other.example.com"
`)

	tests := []struct {
		name string
		data []byte
		ext  string
	}{
		{name: "yaml", data: yamlData, ext: ".yaml"},
		{name: "yml", data: yamlData, ext: ".yml"},
		{name: "toml", data: tomlData, ext: ".toml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles, err := ParseProfiles(tt.data, tt.ext)
			require.NoError(t, err)
			require.Len(t, profiles, 2)

			gs := profiles["glowscript"]
			assert.Equal(t, "https://sandbox.example.com", gs.Origin)
			assert.Equal(t, "glowscript", gs.Language)
			require.NotNil(t, gs.IndentWidth)
			assert.Equal(t, 2, *gs.IndentWidth)
			assert.True(t, gs.Writable)

			plain := profiles["plain"]
			assert.Nil(t, plain.IndentWidth)
			assert.False(t, plain.Writable)
		})
	}
}

func TestParseProfilesErrors(t *testing.T) {
	_, err := ParseProfiles([]byte(`profiles: {x: {language: js}}`), ".yaml")
	assert.ErrorContains(t, err, "origin is required")

	_, err = ParseProfiles([]byte(`profiles: {x: {origin: "https://a.test/frame.html"}}`), ".yaml")
	assert.ErrorContains(t, err, "anything after the host")

	_, err = ParseProfiles([]byte(`profiles: {"bad name": {origin: "https://a.test"}}`), ".yaml")
	assert.ErrorContains(t, err, "profile name contains invalid characters")

	_, err = ParseProfiles([]byte(`{}`), ".json")
	assert.ErrorContains(t, err, "unsupported")
}

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles:\n  a:\n    origin: https://a.example.com\n"), 0o644))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	assert.Equal(t, "https://a.example.com", profiles["a"].Origin)

	_, err = LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
