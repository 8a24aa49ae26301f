// SPDX-License-Identifier: Unlicense OR MIT

// Package config loads host configuration from TOML or YAML files
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the host configuration.
type Config struct {
	// Assets is the asset bundle directory.
	Assets string `toml:"assets" yaml:"assets"`
	// ICUData is the locale data file. Empty means next to the
	// executable.
	ICUData string `toml:"icu_data" yaml:"icu_data"`
	// EngineArgs are appended to the engine flags.
	EngineArgs []string `toml:"engine_args" yaml:"engine_args"`
	PixelRatio float64  `toml:"pixel_ratio" yaml:"pixel_ratio"`
	Input      Input    `toml:"input" yaml:"input"`
	Window     Window   `toml:"window" yaml:"window"`
	Log        Log      `toml:"log" yaml:"log"`
}

type Input struct {
	// Device is the evdev node of the touchscreen.
	Device string `toml:"device" yaml:"device"`
	// Wait bounds how long to wait for Device to appear.
	Wait Duration `toml:"wait" yaml:"wait"`
	// Grab requests exclusive access to Device.
	Grab bool `toml:"grab" yaml:"grab"`
}

type Window struct {
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
	Title  string `toml:"title" yaml:"title"`
}

type Log struct {
	Level string `toml:"level" yaml:"level"`
	JSON  bool   `toml:"json" yaml:"json"`
}

// Duration is a time.Duration written as a string like "2s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		PixelRatio: 1,
		Input: Input{
			Device: "/dev/input/event0",
		},
		Window: Window{
			Width:  800,
			Height: 600,
			Title:  "Flutter",
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load reads the configuration at path over the defaults and applies
// environment overrides. An empty path or a missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	switch ext := filepath.Ext(path); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("decode TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	return nil
}

// ApplyEnv overrides fields from FLUTTERPI_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("FLUTTERPI_ASSETS"); v != "" {
		c.Assets = v
	}
	if v := getenv("FLUTTERPI_ICU_DATA"); v != "" {
		c.ICUData = v
	}
	if v := getenv("FLUTTERPI_INPUT"); v != "" {
		c.Input.Device = v
	}
	if v := getenv("FLUTTERPI_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Assets == "" {
		return errors.New("config: no asset bundle path")
	}
	if c.PixelRatio <= 0 {
		return fmt.Errorf("config: pixel_ratio must be positive, got %g", c.PixelRatio)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("config: invalid window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Input.Wait < 0 {
		return errors.New("config: input.wait must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
