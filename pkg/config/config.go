// Package config loads prism settings from the environment, optionally seeded
// from .env files.
package config

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvWidth           = "PRISM_WIDTH"
	EnvHeight          = "PRISM_HEIGHT"
	EnvFPS             = "PRISM_FPS"
	EnvLogLevel        = "PRISM_LOG_LEVEL"
	EnvLogJSON         = "PRISM_LOG_JSON"
	EnvMaxLights       = "PRISM_MAX_LIGHTS"
	EnvOITEpsilon      = "PRISM_OIT_EPSILON"
	EnvStateStackDepth = "PRISM_STATE_STACK_DEPTH"
	EnvBRDFSize        = "PRISM_BRDF_SIZE"
	EnvIrradianceSize  = "PRISM_IRRADIANCE_SIZE"
	EnvShaderMode      = "PRISM_SHADER_MODE"
	EnvBackground      = "PRISM_BACKGROUND"
)

// MaxLights is the upper bound on point lights passed to a single draw.
const MaxLights = 8

// ErrInvalid is returned when a setting is out of range.
var ErrInvalid = errors.New("config: invalid value")

// Config holds renderer and viewer settings.
type Config struct {
	Width           int     // render target width in pixels
	Height          int     // render target height in pixels
	FPS             int     // viewer frame rate
	LogLevel        string  // logrus level name
	LogJSON         bool    // JSON log output
	MaxLights       int     // closest point lights per draw
	OITEpsilon      float64 // revealage guard in the OIT composite
	StateStackDepth int     // GPU state stack cap
	BRDFSize        int     // BRDF LUT edge length
	IrradianceSize  int     // irradiance cubemap face edge length
	ShaderMode      string  // shader language requested from materials
	Background      string  // clear color as #rrggbb
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Width:           160,
		Height:          96,
		FPS:             30,
		LogLevel:        "info",
		MaxLights:       4,
		OITEpsilon:      1e-5,
		StateStackDepth: 24,
		BRDFSize:        32,
		IrradianceSize:  8,
		ShaderMode:      "soft",
		Background:      "#101018",
	}
}

// Load reads the given .env files (missing files are an error), then builds a
// Config from PRISM_* variables over Default.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return Config{}, fmt.Errorf("load env files: %w", err)
		}
	}
	envy.Reload()

	cfg := Default()
	var err error
	if cfg.Width, err = getInt(EnvWidth, cfg.Width); err != nil {
		return Config{}, err
	}
	if cfg.Height, err = getInt(EnvHeight, cfg.Height); err != nil {
		return Config{}, err
	}
	if cfg.FPS, err = getInt(EnvFPS, cfg.FPS); err != nil {
		return Config{}, err
	}
	if cfg.MaxLights, err = getInt(EnvMaxLights, cfg.MaxLights); err != nil {
		return Config{}, err
	}
	if cfg.StateStackDepth, err = getInt(EnvStateStackDepth, cfg.StateStackDepth); err != nil {
		return Config{}, err
	}
	if cfg.BRDFSize, err = getInt(EnvBRDFSize, cfg.BRDFSize); err != nil {
		return Config{}, err
	}
	if cfg.IrradianceSize, err = getInt(EnvIrradianceSize, cfg.IrradianceSize); err != nil {
		return Config{}, err
	}
	if cfg.OITEpsilon, err = getFloat(EnvOITEpsilon, cfg.OITEpsilon); err != nil {
		return Config{}, err
	}
	if cfg.LogJSON, err = getBool(EnvLogJSON, cfg.LogJSON); err != nil {
		return Config{}, err
	}
	cfg.LogLevel = envy.Get(EnvLogLevel, cfg.LogLevel)
	cfg.ShaderMode = envy.Get(EnvShaderMode, cfg.ShaderMode)
	cfg.Background = envy.Get(EnvBackground, cfg.Background)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalid, c.Width, c.Height)
	case c.FPS <= 0:
		return fmt.Errorf("%w: fps %d", ErrInvalid, c.FPS)
	case c.MaxLights < 0 || c.MaxLights > MaxLights:
		return fmt.Errorf("%w: max lights %d (0..%d)", ErrInvalid, c.MaxLights, MaxLights)
	case c.OITEpsilon <= 0:
		return fmt.Errorf("%w: oit epsilon %g", ErrInvalid, c.OITEpsilon)
	case c.StateStackDepth <= 0:
		return fmt.Errorf("%w: state stack depth %d", ErrInvalid, c.StateStackDepth)
	case c.BRDFSize <= 0 || c.IrradianceSize <= 0:
		return fmt.Errorf("%w: lut sizes %d/%d", ErrInvalid, c.BRDFSize, c.IrradianceSize)
	}
	if _, err := ParseColor(c.Background); err != nil {
		return err
	}
	return nil
}

// ParseColor parses a #rrggbb color into linear 0..1 components.
func ParseColor(hex string) ([3]float32, error) {
	var out [3]float32
	if len(hex) != 7 || hex[0] != '#' {
		return out, fmt.Errorf("%w: color %q", ErrInvalid, hex)
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return out, fmt.Errorf("%w: color %q: %w", ErrInvalid, hex, err)
	}
	out[0] = float32((v>>16)&0xff) / 255
	out[1] = float32((v>>8)&0xff) / 255
	out[2] = float32(v&0xff) / 255
	return out, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := envy.Get(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %w", ErrInvalid, key, raw, err)
	}
	return v, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	raw := envy.Get(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %w", ErrInvalid, key, raw, err)
	}
	return v, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := envy.Get(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q: %w", ErrInvalid, key, raw, err)
	}
	return v, nil
}
