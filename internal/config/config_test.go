// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jeranaias/relay-tui/internal/provider"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.UI.Theme != "auto" {
		t.Errorf("default theme = %q, want auto", cfg.UI.Theme)
	}
	if cfg.Discovery.CacheSeconds != 300 {
		t.Errorf("default cache_seconds = %d, want 300", cfg.Discovery.CacheSeconds)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing config file should yield defaults, got error: %v", err)
	}
	if cfg.Chat.RequestTimeoutSecs != 120 {
		t.Errorf("request_timeout_secs = %d, want 120", cfg.Chat.RequestTimeoutSecs)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
default_model = "openai/gpt-4o"

[chat]
temperature = 0.3

[providers.openai]
api_key = "sk-test"

[providers.corp]
base_api_url = "https://llm.corp.example/v1"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.DefaultModel != "openai/gpt-4o" {
		t.Errorf("default_model = %q", cfg.DefaultModel)
	}
	if cfg.Chat.Temperature != 0.3 {
		t.Errorf("temperature = %v, want 0.3", cfg.Chat.Temperature)
	}
	if cfg.Providers["openai"].APIKey != "sk-test" {
		t.Errorf("openai api_key = %q", cfg.Providers["openai"].APIKey)
	}
	// Defaults still fill unset sections.
	if cfg.Discovery.CacheSeconds != 300 {
		t.Errorf("cache_seconds = %d, want 300", cfg.Discovery.CacheSeconds)
	}
}

func TestLoadFromPathFixesPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`default_model = "x"`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, true},
		{"temperature too high", func(c *Config) { c.Chat.Temperature = 3 }, true},
		{"negative max tokens", func(c *Config) { c.Chat.MaxTokens = -1 }, true},
		{"negative cache ttl", func(c *Config) { c.Discovery.CacheSeconds = -5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("RELAY_MODEL", "local/llama3")
	t.Setenv("RELAY_THEME", "light")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.DefaultModel != "local/llama3" {
		t.Errorf("DefaultModel = %q", cfg.DefaultModel)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
}

// =============================================================================
// PROVIDER MERGE
// =============================================================================

func TestBuildProviderConfigsLayering(t *testing.T) {
	t.Setenv("RELAY_OPENAI_API_KEY", "sk-env")

	stored := []provider.PersistedProviderConfig{
		{
			Name:       "openai",
			BaseAPIURL: "https://api.openai.com/v1",
			APIKey:     "sk-stored",
		},
		{
			Name:       "corp",
			BaseAPIURL: "https://llm.corp.example/v1",
			APIKey:     "corp-key",
		},
	}

	cfg := Default()
	cfg.Providers = map[string]ProviderOverride{
		"corp": {BaseAPIURL: "https://llm2.corp.example/v1"},
	}

	configs := BuildProviderConfigs(cfg, stored)

	byKey := make(map[string]provider.PersistedProviderConfig)
	for _, c := range configs {
		byKey[c.Name] = c
	}

	// Environment key beats the stored key.
	if got := byKey["openai"].APIKey; got != "sk-env" {
		t.Errorf("openai key = %q, want sk-env", got)
	}
	// config.toml URL beats the stored URL; the stored key survives.
	if got := byKey["corp"].BaseAPIURL; got != "https://llm2.corp.example/v1" {
		t.Errorf("corp url = %q", got)
	}
	if got := byKey["corp"].APIKey; got != "corp-key" {
		t.Errorf("corp key = %q, want corp-key", got)
	}
	// Built-ins that no layer touched still appear.
	if _, ok := byKey["local"]; !ok {
		t.Error("built-in local provider missing from merge")
	}
}

func TestBuildProviderConfigsOrder(t *testing.T) {
	stored := []provider.PersistedProviderConfig{
		{Name: "zeta", BaseAPIURL: "https://zeta.example/v1"},
		{Name: "alpha", BaseAPIURL: "https://alpha.example/v1"},
	}

	configs := BuildProviderConfigs(Default(), stored)

	var keys []string
	for _, c := range configs {
		keys = append(keys, c.Name)
	}

	// Built-ins first, then store entries in document order.
	want := []string{"openai", "local", "zeta", "alpha"}
	if len(keys) != len(want) {
		t.Fatalf("got %d providers %v, want %v", len(keys), keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("provider[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestEnvKeyVar(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"openai", "RELAY_OPENAI_API_KEY"},
		{"my-corp", "RELAY_MY_CORP_API_KEY"},
		{"llm.internal", "RELAY_LLM_INTERNAL_API_KEY"},
	}
	for _, tt := range tests {
		if got := envKeyVar(tt.key); got != tt.want {
			t.Errorf("envKeyVar(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
