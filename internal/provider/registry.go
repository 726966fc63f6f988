// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/relay-tui/internal/diag"
)

// =============================================================================
// REGISTRY
// =============================================================================

// Registry owns the set of ProviderRecords, keyed by lowercase provider name.
//
// Iteration order is insertion order, carried in an explicit key slice. This
// is a contract, not an accident: when an unprefixed model string matches in
// more than one provider, the first provider in insertion order wins, and
// listing/suggestion output is stable across runs.
type Registry struct {
	keys    []string
	records map[string]*ProviderRecord
	aliaser AliasStrategy
}

// NewRegistry creates an empty registry. An empty registry is valid; every
// lookup just fails with NotFoundError or InvalidModelError.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*ProviderRecord),
		aliaser: IdentityAlias{},
	}
}

// FromConfigs builds a registry from merged configuration. Slice order
// becomes registry iteration order. A duplicate key replaces the earlier
// record in place, keeping its original position.
func FromConfigs(configs []PersistedProviderConfig) *Registry {
	r := NewRegistry()
	for _, cfg := range configs {
		r.Add(NewRecord(cfg))
	}
	return r
}

// SetAliasStrategy replaces the naming policy for newly discovered models.
func (r *Registry) SetAliasStrategy(s AliasStrategy) {
	if s != nil {
		r.aliaser = s
	}
}

// Add inserts or replaces a record under its case-normalized key.
func (r *Registry) Add(rec *ProviderRecord) {
	key := rec.Key()
	if _, ok := r.records[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.records[key] = rec
}

// Get returns the record for a provider key (case-insensitive).
// Fails with NotFoundError when absent; there is no silent nil.
func (r *Registry) Get(providerKey string) (*ProviderRecord, error) {
	rec, ok := r.records[strings.ToLower(providerKey)]
	if !ok {
		return nil, &NotFoundError{Provider: providerKey}
	}
	return rec, nil
}

// Names returns the provider keys in insertion order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// All returns every record in insertion order.
func (r *Registry) All() []*ProviderRecord {
	out := make([]*ProviderRecord, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, r.records[k])
	}
	return out
}

// Len returns the number of providers.
func (r *Registry) Len() int {
	return len(r.keys)
}

// =============================================================================
// RESOLUTION
// =============================================================================

// Resolve turns a user-supplied model string into (record, long identifier).
//
// A "provider/fragment" string whose prefix names a known provider is scoped
// to that provider; the fragment must exactly equal a long identifier or a
// short alias there. Without a recognized prefix, every provider's valid set
// is searched for an exact long or short match, and the first provider in
// insertion order wins.
//
// Exact equality only. Substring and fuzzy matching belong to the
// interactive suggester; resolution must never silently pick a model the
// user did not name.
func (r *Registry) Resolve(modelString string) (*ProviderRecord, string, error) {
	trimmed := strings.TrimSpace(modelString)
	if trimmed == "" {
		return nil, "", &InvalidModelError{Model: modelString}
	}

	if prefix, fragment, ok := strings.Cut(trimmed, "/"); ok {
		if rec, exists := r.records[strings.ToLower(prefix)]; exists {
			long, found := rec.resolveExact(fragment)
			if !found {
				return nil, "", &InvalidModelError{Model: trimmed}
			}
			return rec, long, nil
		}
		// Prefix is not a provider; fall through and treat the whole
		// string as a model fragment (long ids may contain slashes).
	}

	for _, key := range r.keys {
		rec := r.records[key]
		if long, found := rec.resolveExact(trimmed); found {
			return rec, long, nil
		}
	}
	return nil, "", &InvalidModelError{Model: trimmed}
}

// =============================================================================
// AGGREGATE VIEWS
// =============================================================================

// MergedModel is one entry of the flattened cross-provider model list.
type MergedModel struct {
	Provider string
	Long     string
	Short    string
}

// MergedModels flattens every provider's valid set, providers in insertion
// order, models in their per-provider order.
func (r *Registry) MergedModels() []MergedModel {
	var out []MergedModel
	for _, key := range r.keys {
		k := key
		r.records[key].ValidModels.Each(func(long, short string) {
			out = append(out, MergedModel{Provider: k, Long: long, Short: short})
		})
	}
	return out
}

// ScopedDisplayStrings formats every merged entry as
// "{provider}/{long} ({short})", used for listing and the suggestion corpus.
func (r *Registry) ScopedDisplayStrings() []string {
	merged := r.MergedModels()
	out := make([]string, 0, len(merged))
	for _, m := range merged {
		out = append(out, fmt.Sprintf("%s/%s (%s)", m.Provider, m.Long, m.Short))
	}
	return out
}

// FragmentMatch is one per-provider hit from FindByFragment.
type FragmentMatch struct {
	Record *ProviderRecord
	Long   string
}

// FindByFragment collects at most one hit per provider: exact long, then
// exact short, then first substring on long, then first substring on short.
func (r *Registry) FindByFragment(fragment string) []FragmentMatch {
	var out []FragmentMatch
	for _, key := range r.keys {
		rec := r.records[key]
		if long, ok := rec.lookupFragment(fragment); ok {
			out = append(out, FragmentMatch{Record: rec, Long: long})
		}
	}
	return out
}

// =============================================================================
// DISCOVERY ORCHESTRATION
// =============================================================================

// Discoverer performs the per-provider network calls for discovery.
// Implemented by discovery.Client; an interface here so the registry can be
// tested without a network.
type Discoverer interface {
	// ListModels returns the provider's model listing, from cache when
	// fresh. A stale cache is returned with a nil error when the refresh
	// fails; the error is non-nil only when there is nothing to return.
	ListModels(ctx context.Context, rec *ProviderRecord, forceRefresh bool) ([]ModelInfo, error)

	// PingValidate reports whether the model answers a ping prompt.
	// Failures of any kind are false; it never errors.
	PingValidate(ctx context.Context, rec *ProviderRecord, modelID string) bool
}

// DiscoverOptions controls a DiscoverAndValidate run.
type DiscoverOptions struct {
	// ForceRefresh bypasses fresh caches.
	ForceRefresh bool

	// PersistOnSuccess writes the provider store after a fully clean run.
	PersistOnSuccess bool

	// Provider limits the run to one provider key. Empty means all.
	Provider string

	// DataDir is where the provider store lives when persisting.
	DataDir string
}

// DiscoverAndValidate refreshes model knowledge for the targeted providers.
//
// Providers are processed in registry insertion order. A provider without a
// usable API key is skipped without marking failure. Each listed model not
// already known-invalid is ping-validated and classified; existing aliases
// are preserved, new models get the alias strategy's name. A provider's
// failure is logged and isolated: the rest of the batch still runs.
//
// Persistence happens at most once, only when every targeted provider
// completed cleanly and PersistOnSuccess is set. A partial failure keeps the
// in-memory updates for the providers that succeeded but writes nothing, so
// the store is never half-updated.
//
// Returns true iff no targeted provider errored. Callers must not run two
// discoveries concurrently; records are mutated in place.
func (r *Registry) DiscoverAndValidate(ctx context.Context, d Discoverer, opts DiscoverOptions) (bool, error) {
	targets := r.keys
	if opts.Provider != "" {
		key := strings.ToLower(opts.Provider)
		if _, ok := r.records[key]; !ok {
			return false, &NotFoundError{Provider: opts.Provider}
		}
		targets = []string{key}
	}

	success := true
	for _, key := range targets {
		rec := r.records[key]
		if !rec.HasUsableKey() {
			diag.Logf("discovery: skipping %s: no API key configured", key)
			continue
		}
		if err := r.discoverOne(ctx, d, rec, opts.ForceRefresh); err != nil {
			diag.Logf("discovery: provider %s failed: %v", key, err)
			success = false
		}
	}

	if success && opts.PersistOnSuccess {
		if err := r.Persist(opts.DataDir); err != nil {
			diag.Logf("discovery: persist failed: %v", err)
			return false, nil
		}
	}
	return success, nil
}

// discoverOne lists and validates a single provider's models.
func (r *Registry) discoverOne(ctx context.Context, d Discoverer, rec *ProviderRecord, forceRefresh bool) (err error) {
	// A misbehaving Discoverer must not take the whole batch down.
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("discovery panicked: %v", p)
		}
	}()

	models, err := d.ListModels(ctx, rec, forceRefresh)
	if err != nil {
		return err
	}

	for _, m := range models {
		if m.ID == "" || rec.IsInvalid(m.ID) {
			continue
		}
		if d.PingValidate(ctx, rec, m.ID) {
			rec.MarkValid(m.ID, r.aliaser.Alias(rec.Key(), m.ID))
		} else {
			rec.MarkInvalid(m.ID)
		}
	}
	return nil
}

// Persist writes every provider's persisted fields to the provider store
// under dataDir. Cache state is excluded by construction.
func (r *Registry) Persist(dataDir string) error {
	configs := make([]PersistedProviderConfig, 0, len(r.keys))
	for _, key := range r.keys {
		configs = append(configs, r.records[key].PersistedProviderConfig)
	}
	return SaveStore(dataDir, configs)
}
