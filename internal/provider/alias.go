// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

// AliasStrategy decides the short alias for a newly discovered model.
// Existing aliases are never overwritten; the strategy only names models the
// registry has not seen before.
type AliasStrategy interface {
	Alias(providerKey, longID string) string
}

// IdentityAlias reuses the long identifier as its own alias. This is a
// placeholder policy, not a naming scheme: it exists as a named strategy so
// a smarter one can be swapped in without touching discovery.
type IdentityAlias struct{}

// Alias returns the long identifier unchanged.
func (IdentityAlias) Alias(_, longID string) string {
	return longID
}
