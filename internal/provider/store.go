// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/relay-tui/internal/util"
)

// StoreFileName is the provider store file under the data directory.
const StoreFileName = "providers.yaml"

// The store schema is additive, never breaking:
//
//	providers:
//	  <providerKey>:
//	    name: string
//	    base_api_url: string
//	    api_key: string
//	    valid_models: { <longId>: <shortAlias>, ... }
//	    invalid_models: [ <longId>, ... ]   # optional, defaults to []
//
// Provider order and valid_models order are significant (registry iteration
// order), so both load and save go through yaml.Node to keep document order
// instead of yaml's sorted-map marshaling.

// StorePath returns the provider store path under a data directory.
func StorePath(dataDir string) string {
	return filepath.Join(dataDir, StoreFileName)
}

// LoadStore reads the provider store. A missing file is not an error: it
// loads as zero providers. A provider without invalid_models loads with an
// empty invalid set.
func LoadStore(dataDir string) ([]PersistedProviderConfig, error) {
	data, err := os.ReadFile(StorePath(dataDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read provider store: %w", err)
	}
	return parseStore(data)
}

func parseStore(data []byte) ([]PersistedProviderConfig, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse provider store: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("provider store: expected mapping at top level")
	}

	var providersNode *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "providers" {
			providersNode = root.Content[i+1]
			break
		}
	}
	if providersNode == nil || providersNode.Kind != yaml.MappingNode {
		return nil, nil
	}

	var configs []PersistedProviderConfig
	for i := 0; i+1 < len(providersNode.Content); i += 2 {
		key := providersNode.Content[i].Value

		var cfg PersistedProviderConfig
		if err := providersNode.Content[i+1].Decode(&cfg); err != nil {
			return nil, fmt.Errorf("provider store: entry %q: %w", key, err)
		}
		if cfg.Name == "" {
			cfg.Name = key
		}
		if cfg.ValidModels == nil {
			cfg.ValidModels = NewModelMap()
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// SaveStore writes the provider store atomically with 0600 permissions
// (the file carries API keys). Only persisted fields are written.
func SaveStore(dataDir string, configs []PersistedProviderConfig) error {
	providers := &yaml.Node{Kind: yaml.MappingNode}
	for i := range configs {
		cfg := &configs[i]

		var entry yaml.Node
		if err := entry.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode provider %q: %w", cfg.Name, err)
		}
		providers.Content = append(providers.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: strings.ToLower(cfg.Name)},
			&entry,
		)
	}

	root := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: "providers"},
			providers,
		},
	}

	data, err := yaml.Marshal(root)
	if err != nil {
		return fmt.Errorf("failed to encode provider store: %w", err)
	}

	header := []byte("# relay provider store - managed by relay, edit with care\n")
	return util.AtomicWriteFile(StorePath(dataDir), append(header, data...), 0600)
}
