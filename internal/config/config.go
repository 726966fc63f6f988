// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for relay.
//
// Configuration is TOML with sensible defaults and environment overrides:
//   - ~/.relay/config.toml
//   - Built-in defaults
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete relay configuration.
type Config struct {
	Version      string `toml:"version"`
	DefaultModel string `toml:"default_model"`

	Chat      ChatConfig      `toml:"chat"`
	Discovery DiscoveryConfig `toml:"discovery"`
	UI        UIConfig        `toml:"ui"`

	// Providers holds per-provider overrides applied on top of the
	// provider store (see BuildProviderConfigs for the merge order).
	Providers map[string]ProviderOverride `toml:"providers"`
}

// ChatConfig controls chat-completion requests.
type ChatConfig struct {
	// Temperature for chat requests (0 uses the provider default)
	Temperature float64 `toml:"temperature"`
	// MaxTokens caps completion length (0 = provider default)
	MaxTokens int `toml:"max_tokens"`
	// RequestTimeoutSecs bounds non-streaming chat requests
	RequestTimeoutSecs int `toml:"request_timeout_secs"`
}

// DiscoveryConfig controls model discovery.
type DiscoveryConfig struct {
	// CacheSeconds is the /models listing TTL
	CacheSeconds int `toml:"cache_seconds"`
	// PingRate paces validation calls, in requests per second
	PingRate float64 `toml:"ping_rate"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// ShowProviderHints displays the owning provider next to suggestions
	ShowProviderHints bool `toml:"show_provider_hints"`
	// CompactMode uses a more compact layout
	CompactMode bool `toml:"compact_mode"`
}

// ProviderOverride is the user-facing override for one provider in
// config.toml. Empty fields leave the merged value untouched.
type ProviderOverride struct {
	Name       string `toml:"name"`
	BaseAPIURL string `toml:"base_api_url"`
	APIKey     string `toml:"api_key"`
}

// =============================================================================
// DEFAULTS AND PATHS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version:      "1.0.0",
		DefaultModel: "",
		Chat: ChatConfig{
			Temperature:        0.7,
			MaxTokens:          0,
			RequestTimeoutSecs: 120,
		},
		Discovery: DiscoveryConfig{
			CacheSeconds: 300,
			PingRate:     4,
		},
		UI: UIConfig{
			Theme:             "auto",
			ShowProviderHints: true,
		},
	}
}

// DataDir returns the relay data directory path.
func DataDir() (string, error) {
	if dir := os.Getenv("RELAY_DATA_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".relay"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ensureSecurePermissions fixes overly permissive modes on files that may
// carry API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads configuration from the config file, falling back to defaults,
// then applies environment overrides and validation.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. A missing file yields defaults, not an error.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if err := ensureSecurePermissions(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the default TOML file with 0600
// permissions (provider overrides may carry API keys).
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# relay configuration file")
	fmt.Fprintln(file, "# Generated by relay - edit with care")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported variables:
//   - RELAY_MODEL: overrides default_model
//   - RELAY_THEME: overrides ui.theme
//
// Per-provider API keys (RELAY_<PROVIDER>_API_KEY) are applied later, as the
// last provider merge step - see BuildProviderConfigs.
func (c *Config) ApplyEnvOverrides() {
	if model := os.Getenv("RELAY_MODEL"); model != "" {
		c.DefaultModel = model
	}
	if theme := os.Getenv("RELAY_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// SetDefaults fills in any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Chat.Temperature == 0 {
		c.Chat.Temperature = defaults.Chat.Temperature
	}
	if c.Chat.RequestTimeoutSecs == 0 {
		c.Chat.RequestTimeoutSecs = defaults.Chat.RequestTimeoutSecs
	}
	if c.Discovery.CacheSeconds == 0 {
		c.Discovery.CacheSeconds = defaults.Discovery.CacheSeconds
	}
	if c.Discovery.PingRate == 0 {
		c.Discovery.PingRate = defaults.Discovery.PingRate
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "chat.temperature",
			Message: fmt.Sprintf("must be between 0 and 2, got %v", c.Chat.Temperature),
		})
	}
	if c.Chat.MaxTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.max_tokens",
			Message: "must be non-negative",
		})
	}
	if c.Discovery.CacheSeconds < 0 {
		errs = append(errs, ValidationError{
			Field:   "discovery.cache_seconds",
			Message: "must be non-negative",
		})
	}
	if c.Discovery.PingRate < 0 {
		errs = append(errs, ValidationError{
			Field:   "discovery.ping_rate",
			Message: "must be non-negative",
		})
	}

	for key, override := range c.Providers {
		if override.BaseAPIURL == "" {
			continue
		}
		if _, err := url.Parse(override.BaseAPIURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("providers.%s.base_api_url", key),
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
