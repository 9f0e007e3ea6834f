// Package config loads and validates the player configuration file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied for fields missing from the config file.
const (
	DefaultBaseURL        = "http://localhost:8000"
	DefaultTimeout        = 10 * time.Second
	DefaultPreloadTimeout = 15 * time.Second
	DefaultFadeDuration   = 100 * time.Millisecond
	DefaultBaseLatency    = 20 * time.Millisecond
)

// Default returns a Config with sensible default values.
func Default() Config {
	return Config{
		API: API{
			BaseURL: DefaultBaseURL,
			Timeout: DefaultTimeout,
		},
		Playback: Playback{
			PreloadTimeout: DefaultPreloadTimeout,
			FadeDuration:   DefaultFadeDuration,
			BaseLatency:    DefaultBaseLatency,
		},
	}
}

// ValidationError reports a bad config value.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Load reads and parses the config file at path. A missing file yields the
// defaults; a present file is merged over them and validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that all config values are usable.
func Validate(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return ValidationError{Field: "api.base_url", Message: "must not be empty"}
	}
	if !strings.HasPrefix(cfg.API.BaseURL, "http://") && !strings.HasPrefix(cfg.API.BaseURL, "https://") {
		return ValidationError{Field: "api.base_url", Message: "must be an http(s) URL"}
	}
	if cfg.API.Timeout <= 0 {
		return ValidationError{Field: "api.timeout", Message: "must be positive"}
	}
	if cfg.Playback.PreloadTimeout <= 0 {
		return ValidationError{Field: "playback.preload_timeout", Message: "must be positive"}
	}
	if cfg.Playback.FadeDuration < 0 {
		return ValidationError{Field: "playback.fade_duration", Message: "must not be negative"}
	}
	if cfg.Playback.BaseLatency < 0 {
		return ValidationError{Field: "playback.base_latency", Message: "must not be negative"}
	}
	return nil
}
