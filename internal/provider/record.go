// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// DefaultCacheTTL is how long a discovery listing stays fresh.
const DefaultCacheTTL = 300 * time.Second

// ModelInfo is one model descriptor from a provider's /models listing.
type ModelInfo struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by,omitempty"`
	Created int64  `json:"created,omitempty"`
}

// PersistedProviderConfig is the serializable part of a provider. Exactly
// these fields appear in the provider store; cache state is kept in a
// separate struct so serialization code cannot leak or drop it by accident.
type PersistedProviderConfig struct {
	Name          string    `yaml:"name"`
	BaseAPIURL    string    `yaml:"base_api_url"`
	APIKey        string    `yaml:"api_key"`
	ValidModels   *ModelMap `yaml:"valid_models"`
	InvalidModels []string  `yaml:"invalid_models,omitempty"`
}

// CacheState holds the last raw discovery payload for a provider.
// In-memory only: a restart always starts cold.
type CacheState struct {
	Models    []ModelInfo
	FetchedAt time.Time
	TTL       time.Duration
}

// Fresh reports whether the cache holds a non-empty listing younger than TTL.
func (c *CacheState) Fresh(now time.Time) bool {
	if len(c.Models) == 0 {
		return false
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return now.Sub(c.FetchedAt) < ttl
}

// Put replaces the cached listing.
func (c *CacheState) Put(models []ModelInfo, now time.Time) {
	c.Models = models
	c.FetchedAt = now
}

// ProviderRecord is one provider's configuration plus model knowledge and
// cache state. Mutated in place by discovery; read by resolution and
// suggestion. Not safe for concurrent mutation without external
// serialization (see Registry.DiscoverAndValidate).
type ProviderRecord struct {
	PersistedProviderConfig

	// Cache is runtime-only discovery state, never persisted.
	Cache CacheState
}

// NewRecord creates a ProviderRecord from its persisted configuration,
// normalizing nil model containers so callers never need to check.
func NewRecord(cfg PersistedProviderConfig) *ProviderRecord {
	if cfg.ValidModels == nil {
		cfg.ValidModels = NewModelMap()
	}
	return &ProviderRecord{
		PersistedProviderConfig: cfg,
		Cache:                   CacheState{TTL: DefaultCacheTTL},
	}
}

// Key returns the registry key for this provider: its lowercased name.
func (r *ProviderRecord) Key() string {
	return strings.ToLower(r.Name)
}

// HasUsableKey reports whether the API key is non-empty after trimming.
// A provider without a usable key is skipped by discovery and unusable for
// chat completion.
func (r *ProviderRecord) HasUsableKey() bool {
	return strings.TrimSpace(r.APIKey) != ""
}

// KeyFingerprint returns a short SHA-256 fingerprint of the API key for
// diagnostics. Never log the key itself.
func (r *ProviderRecord) KeyFingerprint() string {
	if r.APIKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(r.APIKey))
	return hex.EncodeToString(h[:4])
}

// IsInvalid reports whether the long identifier is in the invalid set.
func (r *ProviderRecord) IsInvalid(longID string) bool {
	for _, id := range r.InvalidModels {
		if id == longID {
			return true
		}
	}
	return false
}

// MarkValid records a model as valid. An existing alias is preserved;
// otherwise the given alias is used. The identifier leaves the invalid set:
// a model is never in both sets at once.
func (r *ProviderRecord) MarkValid(longID, alias string) {
	if existing, ok := r.ValidModels.Get(longID); ok {
		alias = existing
	}
	r.ValidModels.Set(longID, alias)
	r.removeInvalid(longID)
}

// MarkInvalid records a model as failing validation, removing it from the
// valid set. Invalid models are skipped by future validation runs until
// explicitly re-checked.
func (r *ProviderRecord) MarkInvalid(longID string) {
	r.ValidModels.Delete(longID)
	if !r.IsInvalid(longID) {
		r.InvalidModels = append(r.InvalidModels, longID)
	}
}

// ClearInvalid empties the invalid set so the next discovery run re-checks
// every listed model.
func (r *ProviderRecord) ClearInvalid() {
	r.InvalidModels = nil
}

func (r *ProviderRecord) removeInvalid(longID string) {
	for i, id := range r.InvalidModels {
		if id == longID {
			r.InvalidModels = append(r.InvalidModels[:i], r.InvalidModels[i+1:]...)
			return
		}
	}
}

// lookupFragment applies the per-record fragment rule: exact long name, then
// exact short name, then first substring match on long, then first substring
// match on short. Comparison is case-insensitive. Returns the long
// identifier of the hit.
func (r *ProviderRecord) lookupFragment(fragment string) (string, bool) {
	frag := strings.ToLower(fragment)

	for _, long := range r.ValidModels.Longs() {
		if strings.ToLower(long) == frag {
			return long, true
		}
	}
	var exactShort string
	r.ValidModels.Each(func(long, short string) {
		if exactShort == "" && strings.ToLower(short) == frag {
			exactShort = long
		}
	})
	if exactShort != "" {
		return exactShort, true
	}
	for _, long := range r.ValidModels.Longs() {
		if strings.Contains(strings.ToLower(long), frag) {
			return long, true
		}
	}
	var subShort string
	r.ValidModels.Each(func(long, short string) {
		if subShort == "" && strings.Contains(strings.ToLower(short), frag) {
			subShort = long
		}
	})
	if subShort != "" {
		return subShort, true
	}
	return "", false
}

// resolveExact matches a fragment against the valid set with exact equality
// only, on either the long identifier or the short alias.
func (r *ProviderRecord) resolveExact(fragment string) (string, bool) {
	frag := strings.ToLower(fragment)

	for _, long := range r.ValidModels.Longs() {
		if strings.ToLower(long) == frag {
			return long, true
		}
	}
	var hit string
	r.ValidModels.Each(func(long, short string) {
		if hit == "" && strings.ToLower(short) == frag {
			hit = long
		}
	})
	if hit != "" {
		return hit, true
	}
	return "", false
}
