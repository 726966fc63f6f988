// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jeranaias/relay-tui/internal/provider"
)

// =============================================================================
// PROVIDER MERGE
// =============================================================================

// BuiltinProviders returns the providers relay knows about out of the box.
// They carry no keys; a key arrives from the store, config.toml, or the
// environment before the provider becomes usable.
func BuiltinProviders() []provider.PersistedProviderConfig {
	return []provider.PersistedProviderConfig{
		{
			Name:        "openai",
			BaseAPIURL:  "https://api.openai.com/v1",
			ValidModels: provider.NewModelMap(),
		},
		{
			Name:        "local",
			BaseAPIURL:  "http://localhost:11434/v1",
			ValidModels: provider.NewModelMap(),
		},
	}
}

// BuildProviderConfigs produces the final provider list by layering, in
// order:
//
//  1. Built-in provider defaults
//  2. The provider store (providers.yaml), in document order
//  3. [providers.X] overrides from config.toml
//  4. RELAY_<PROVIDER>_API_KEY environment variables
//
// Later layers win field-by-field; a layer never removes a provider. The
// returned slice preserves first-seen order: built-ins first, then store
// entries, then providers introduced only by config.toml overrides.
func BuildProviderConfigs(cfg *Config, stored []provider.PersistedProviderConfig) []provider.PersistedProviderConfig {
	var order []string
	byKey := make(map[string]provider.PersistedProviderConfig)

	upsert := func(key string, apply func(*provider.PersistedProviderConfig)) {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return
		}
		rec, ok := byKey[key]
		if !ok {
			rec = provider.PersistedProviderConfig{
				Name:        key,
				ValidModels: provider.NewModelMap(),
			}
			order = append(order, key)
		}
		apply(&rec)
		byKey[key] = rec
	}

	for _, b := range BuiltinProviders() {
		builtin := b
		upsert(builtin.Name, func(rec *provider.PersistedProviderConfig) {
			*rec = builtin
		})
	}

	for _, s := range stored {
		entry := s
		upsert(entry.Name, func(rec *provider.PersistedProviderConfig) {
			rec.Name = entry.Name
			if entry.BaseAPIURL != "" {
				rec.BaseAPIURL = entry.BaseAPIURL
			}
			if entry.APIKey != "" {
				rec.APIKey = entry.APIKey
			}
			if entry.ValidModels != nil && entry.ValidModels.Len() > 0 {
				rec.ValidModels = entry.ValidModels
			}
			if len(entry.InvalidModels) > 0 {
				rec.InvalidModels = entry.InvalidModels
			}
		})
	}

	if cfg != nil {
		// TOML maps are unordered; sort so providers introduced only by
		// config.toml land in a stable position.
		overrideKeys := make([]string, 0, len(cfg.Providers))
		for key := range cfg.Providers {
			overrideKeys = append(overrideKeys, key)
		}
		sort.Strings(overrideKeys)

		for _, key := range overrideKeys {
			ov := cfg.Providers[key]
			upsert(key, func(rec *provider.PersistedProviderConfig) {
				if ov.Name != "" {
					rec.Name = ov.Name
				}
				if ov.BaseAPIURL != "" {
					rec.BaseAPIURL = ov.BaseAPIURL
				}
				if ov.APIKey != "" {
					rec.APIKey = ov.APIKey
				}
			})
		}
	}

	// Environment keys override everything, so a key never has to live in
	// a file at all.
	for _, key := range order {
		if envKey := os.Getenv(envKeyVar(key)); envKey != "" {
			rec := byKey[key]
			rec.APIKey = envKey
			byKey[key] = rec
		}
	}

	configs := make([]provider.PersistedProviderConfig, 0, len(order))
	for _, key := range order {
		configs = append(configs, byKey[key])
	}
	return configs
}

// envKeyVar maps a provider key to its API key environment variable, e.g.
// "openai" -> "RELAY_OPENAI_API_KEY". Non-alphanumeric characters become
// underscores.
func envKeyVar(providerKey string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(providerKey) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return fmt.Sprintf("RELAY_%s_API_KEY", b.String())
}
