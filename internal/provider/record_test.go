// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"testing"
	"time"
)

func TestNewRecordNormalizesNilModels(t *testing.T) {
	rec := NewRecord(PersistedProviderConfig{Name: "OpenAI"})

	if rec.ValidModels == nil {
		t.Fatal("ValidModels should never be nil")
	}
	if rec.Key() != "openai" {
		t.Errorf("Key() = %q, want openai", rec.Key())
	}
}

func TestHasUsableKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"sk-abc", true},
		{"", false},
		{"   ", false},
		{"\t\n", false},
		{" sk-padded ", true},
	}
	for _, tt := range tests {
		rec := NewRecord(PersistedProviderConfig{Name: "p", APIKey: tt.key})
		if got := rec.HasUsableKey(); got != tt.want {
			t.Errorf("HasUsableKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestKeyFingerprintNeverLeaksKey(t *testing.T) {
	rec := NewRecord(PersistedProviderConfig{Name: "p", APIKey: "sk-super-secret"})

	fp := rec.KeyFingerprint()
	if fp == "" || fp == "sk-super-secret" {
		t.Errorf("fingerprint = %q", fp)
	}
	if len(fp) != 8 {
		t.Errorf("fingerprint length = %d, want 8 hex chars", len(fp))
	}

	keyless := NewRecord(PersistedProviderConfig{Name: "p"})
	if keyless.KeyFingerprint() != "none" {
		t.Errorf("keyless fingerprint = %q, want none", keyless.KeyFingerprint())
	}
}

// =============================================================================
// VALID / INVALID STATE MACHINE
// =============================================================================

func TestMarkValidAndInvalidAreExclusive(t *testing.T) {
	rec := NewRecord(PersistedProviderConfig{Name: "p"})

	rec.MarkValid("gpt-4o", "4o")
	if rec.IsInvalid("gpt-4o") {
		t.Error("valid model must not be invalid")
	}

	rec.MarkInvalid("gpt-4o")
	if _, ok := rec.ValidModels.Get("gpt-4o"); ok {
		t.Error("invalidated model must leave the valid set")
	}
	if !rec.IsInvalid("gpt-4o") {
		t.Error("model should be in the invalid set")
	}

	// Re-validation pulls it back out of the invalid set.
	rec.MarkValid("gpt-4o", "new-alias")
	if rec.IsInvalid("gpt-4o") {
		t.Error("re-validated model must leave the invalid set")
	}
}

func TestMarkValidPreservesExistingAlias(t *testing.T) {
	rec := NewRecord(PersistedProviderConfig{Name: "p"})

	rec.MarkValid("gpt-4o", "4o")
	rec.MarkValid("gpt-4o", "different")

	if short, _ := rec.ValidModels.Get("gpt-4o"); short != "4o" {
		t.Errorf("alias = %q, want original 4o", short)
	}
}

func TestMarkInvalidIsIdempotent(t *testing.T) {
	rec := NewRecord(PersistedProviderConfig{Name: "p"})

	rec.MarkInvalid("junk")
	rec.MarkInvalid("junk")
	if len(rec.InvalidModels) != 1 {
		t.Errorf("invalid set = %v, want one entry", rec.InvalidModels)
	}

	rec.ClearInvalid()
	if rec.IsInvalid("junk") {
		t.Error("ClearInvalid should empty the invalid set")
	}
}

// =============================================================================
// CACHE
// =============================================================================

func TestCacheFreshness(t *testing.T) {
	now := time.Now()
	cache := CacheState{TTL: time.Minute}

	if cache.Fresh(now) {
		t.Error("empty cache is never fresh")
	}

	cache.Put([]ModelInfo{{ID: "m"}}, now)
	if !cache.Fresh(now.Add(30 * time.Second)) {
		t.Error("cache within TTL should be fresh")
	}
	if cache.Fresh(now.Add(2 * time.Minute)) {
		t.Error("cache past TTL should be stale")
	}
}

func TestCacheZeroTTLUsesDefault(t *testing.T) {
	now := time.Now()
	cache := CacheState{}
	cache.Put([]ModelInfo{{ID: "m"}}, now)

	if !cache.Fresh(now.Add(DefaultCacheTTL - time.Second)) {
		t.Error("zero TTL should fall back to the default")
	}
	if cache.Fresh(now.Add(DefaultCacheTTL + time.Second)) {
		t.Error("default TTL should still expire")
	}
}

// =============================================================================
// MODEL MAP
// =============================================================================

func TestModelMapOrder(t *testing.T) {
	m := NewModelMap()
	m.Set("c-model", "c")
	m.Set("a-model", "a")
	m.Set("b-model", "b")

	want := []string{"c-model", "a-model", "b-model"}
	got := m.Longs()
	if len(got) != len(want) {
		t.Fatalf("Longs() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Longs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// Updating keeps position; deleting preserves the rest.
	m.Set("c-model", "c2")
	if m.Longs()[0] != "c-model" {
		t.Error("update must not move the entry")
	}
	m.Delete("a-model")
	if m.Len() != 2 || m.Longs()[1] != "b-model" {
		t.Errorf("after delete: %v", m.Longs())
	}
}

func TestModelMapClone(t *testing.T) {
	m := NewModelMap()
	m.Set("x", "1")

	clone := m.Clone()
	clone.Set("y", "2")
	if m.Len() != 1 {
		t.Error("mutating a clone must not affect the original")
	}
}
