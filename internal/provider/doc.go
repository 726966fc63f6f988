// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider implements the provider and model registry for relay.
//
// A provider is one OpenAI-compatible endpoint (name, base URL, API key) plus
// the models relay knows about for it: a valid set mapping long identifiers to
// short aliases, and an invalid set of identifiers that failed validation.
//
// # Key Types
//
//   - PersistedProviderConfig: the serializable part of a provider
//   - CacheState: in-memory discovery cache, never persisted
//   - ProviderRecord: the two composed together
//   - Registry: all providers, with cross-provider model resolution
//
// # Resolution vs suggestion
//
// Registry.Resolve is exact-match only: a model string either names exactly
// one (provider, long identifier) pair or resolution fails. Fuzzy matching is
// reserved for the interactive suggester so a typo can never silently route a
// real request to the wrong model.
package provider
