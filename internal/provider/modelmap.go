// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ModelMap is an insertion-ordered mapping of long model identifier to short
// alias. Order matters: listing output and the suggestion corpus follow it,
// and the provider store round-trips it. Go maps are unordered, so the order
// is carried in an explicit key slice.
type ModelMap struct {
	keys    []string
	aliases map[string]string
}

// NewModelMap creates an empty model map.
func NewModelMap() *ModelMap {
	return &ModelMap{aliases: make(map[string]string)}
}

// Set adds or updates the alias for a long identifier. New identifiers are
// appended; existing ones keep their position.
func (m *ModelMap) Set(long, short string) {
	if m.aliases == nil {
		m.aliases = make(map[string]string)
	}
	if _, ok := m.aliases[long]; !ok {
		m.keys = append(m.keys, long)
	}
	m.aliases[long] = short
}

// Get returns the alias for a long identifier.
func (m *ModelMap) Get(long string) (string, bool) {
	if m == nil || m.aliases == nil {
		return "", false
	}
	short, ok := m.aliases[long]
	return short, ok
}

// Delete removes a long identifier, preserving the order of the rest.
func (m *ModelMap) Delete(long string) {
	if m == nil || m.aliases == nil {
		return
	}
	if _, ok := m.aliases[long]; !ok {
		return
	}
	delete(m.aliases, long)
	for i, k := range m.keys {
		if k == long {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries.
func (m *ModelMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Longs returns the long identifiers in insertion order.
// The returned slice is a copy.
func (m *ModelMap) Longs() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Each calls fn for every (long, short) pair in insertion order.
func (m *ModelMap) Each(fn func(long, short string)) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		fn(k, m.aliases[k])
	}
}

// Clone returns a deep copy.
func (m *ModelMap) Clone() *ModelMap {
	out := NewModelMap()
	m.Each(out.Set)
	return out
}

// MarshalYAML encodes the map as a YAML mapping in insertion order.
func (m *ModelMap) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	if m == nil {
		return node, nil
	}
	for _, k := range m.keys {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Value: m.aliases[k]},
		)
	}
	return node, nil
}

// UnmarshalYAML decodes a YAML mapping, preserving document order.
func (m *ModelMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("valid_models: expected mapping, got %v", node.Kind)
	}
	m.keys = nil
	m.aliases = make(map[string]string, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		m.Set(node.Content[i].Value, node.Content[i+1].Value)
	}
	return nil
}
