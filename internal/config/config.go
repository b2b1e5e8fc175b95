// Package config loads and hot-reloads ravel's settings bundle: the
// model identifier and provider options forwarded untouched to the
// adapter, plus the handful of fields the orchestrator reads directly.
//
// A defaults-first yaml.Unmarshal over a zero value, followed by an
// environment-variable override pass.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ravel/internal/signal"
)

// Config is ravel's settings bundle.
type Config struct {
	// Provider selects the concrete adapter: "anthropic", "gemini", or
	// "scripted". Forwarded to cmd/ravel; the core never inspects it.
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`

	// MaxRewinds and MinSpacing are read directly by the orchestrator.
	MaxRewinds int `yaml:"max_rewinds"`
	MinSpacing int `yaml:"min_spacing"`

	DefaultMode signal.Mode `yaml:"default_mode"`

	// HintCharLimit is loaded from the file but not passed on: the prompt
	// builder always caps hints at promptbuilder.MaxHintLength.
	HintCharLimit int `yaml:"hint_char_limit"`

	// Temperatures overrides the mode-to-temperature table as seen through
	// Config.TemperatureFor; missing modes fall back to signal's built-in
	// defaults. The orchestrator does not read it and always uses signal's
	// built-in table.
	Temperatures map[signal.Mode]float64 `yaml:"temperatures"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures the logging package.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// Default returns ravel's built-in defaults, matching the orchestrator
// package's own DefaultConfig for MaxRewinds/MinSpacing/DefaultMode.
func Default() *Config {
	return &Config{
		Provider:      "anthropic",
		Model:         "",
		MaxRewinds:    3,
		MinSpacing:    30,
		DefaultMode:   signal.DefaultMode,
		HintCharLimit: 200,
	}
}

// Load reads and parses the YAML file at path, applying environment
// overrides afterward. A missing file is not an error: Load returns the
// built-in defaults, treating the config file as optional.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if cfg.MaxRewinds < 0 {
		return nil, fmt.Errorf("config: max_rewinds must be >= 0, got %d", cfg.MaxRewinds)
	}
	if cfg.MinSpacing < 0 {
		return nil, fmt.Errorf("config: min_spacing must be >= 0, got %d", cfg.MinSpacing)
	}

	return cfg, nil
}

// applyEnvOverrides picks a provider from the presence of an API-key
// variable when none is configured, and lets RAVEL_MODEL override the
// model. The keys themselves are read by the adapters, not stored here.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && c.Provider == "" {
		c.Provider = "anthropic"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && c.Provider == "" {
		c.Provider = "gemini"
	}
	if model := os.Getenv("RAVEL_MODEL"); model != "" {
		c.Model = model
	}
}

// TemperatureFor returns the effective temperature for mode: the
// config's override if present, otherwise signal's built-in default.
func (c *Config) TemperatureFor(mode signal.Mode) (float64, bool) {
	if c.Temperatures != nil {
		if t, ok := c.Temperatures[mode]; ok {
			return t, true
		}
	}
	return signal.TemperatureFor(mode)
}
