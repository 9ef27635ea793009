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
	assert.Equal(t, Default(), cfg)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv(EnvWidth, "320")
	t.Setenv(EnvHeight, "200")
	t.Setenv(EnvMaxLights, "2")
	t.Setenv(EnvOITEpsilon, "0.001")
	t.Setenv(EnvLogJSON, "true")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
	assert.Equal(t, 2, cfg.MaxLights)
	assert.InDelta(t, 0.001, cfg.OITEpsilon, 1e-12)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.env")
	require.NoError(t, os.WriteFile(path, []byte("PRISM_FPS=12\nPRISM_BRDF_SIZE=16\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv(EnvFPS)
		os.Unsetenv(EnvBRDFSize)
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.FPS)
	assert.Equal(t, 16, cfg.BRDFSize)
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric width", EnvWidth, "wide"},
		{"zero height", EnvHeight, "0"},
		{"too many lights", EnvMaxLights, "9"},
		{"negative epsilon", EnvOITEpsilon, "-1"},
		{"bad bool", EnvLogJSON, "sometimes"},
		{"bad background", EnvBackground, "teal"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff8000")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c[0], 1e-6)
	assert.InDelta(t, 128.0/255, c[1], 1e-6)
	assert.InDelta(t, 0.0, c[2], 1e-6)

	_, err = ParseColor("#12345")
	assert.ErrorIs(t, err, ErrInvalid)
}
