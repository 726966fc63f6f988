// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package suggest

import (
	"fmt"
	"math"
	"testing"
)

// =============================================================================
// JARO-WINKLER
// =============================================================================

func TestJaroWinkler(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1.0},
		{"abc", "abc", 1.0},
		{"abc", "", 0.0},
		{"", "abc", 0.0},
		{"abc", "xyz", 0.0},
	}
	for _, tt := range tests {
		if got := JaroWinkler(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("JaroWinkler(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestJaroWinklerKnownValues(t *testing.T) {
	// Classic reference pairs.
	tests := []struct {
		a, b string
		want float64
	}{
		{"martha", "marhta", 0.9611},
		{"dixon", "dicksonx", 0.8133},
		{"jellyfish", "smellyfish", 0.8962},
	}
	for _, tt := range tests {
		if got := JaroWinkler(tt.a, tt.b); math.Abs(got-tt.want) > 0.001 {
			t.Errorf("JaroWinkler(%q, %q) = %.4f, want %.4f", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestJaroWinklerPrefixBonus(t *testing.T) {
	// A shared prefix must rank higher than the same characters elsewhere.
	withPrefix := JaroWinkler("gpt", "gpt-4o")
	without := JaroWinkler("gpt", "o4-tpg")
	if withPrefix <= without {
		t.Errorf("prefix match %.4f should beat scrambled %.4f", withPrefix, without)
	}

	if got := JaroWinkler("abc", "abc"); got != 1.0 {
		t.Errorf("identical strings = %v, want 1.0", got)
	}
}

func TestJaroWinklerBounded(t *testing.T) {
	pairs := [][2]string{
		{"gpt-4o", "gpt-4o-mini"},
		{"a", "ab"},
		{"llama3.2", "llama"},
		{"x", "yyyyyyyyyy"},
	}
	for _, p := range pairs {
		got := JaroWinkler(p[0], p[1])
		if got < 0 || got > 1 {
			t.Errorf("JaroWinkler(%q, %q) = %v, out of [0,1]", p[0], p[1], got)
		}
	}
}

// =============================================================================
// SUGGESTER
// =============================================================================

type staticSource struct {
	candidates []Candidate
}

func (s *staticSource) SuggestionCandidates() []Candidate {
	return s.candidates
}

type brokenSource struct{}

func (brokenSource) SuggestionCandidates() []Candidate {
	panic("corpus exploded")
}

func newTestSuggester() *Suggester {
	return NewSuggester(&staticSource{candidates: []Candidate{
		{Provider: "openai", Long: "gpt-4o", Short: "4o"},
		{Provider: "openai", Long: "gpt-4o-mini", Short: "4o-mini"},
		{Provider: "openai", Long: "o3-mini", Short: "o3m"},
		{Provider: "local", Long: "llama3.2", Short: "llama"},
	}})
}

func TestSuggestSubstringFilter(t *testing.T) {
	s := newTestSuggester()

	got := s.Suggest("llama", false)
	if len(got) != 1 {
		t.Fatalf("got %d suggestions, want 1", len(got))
	}
	if got[0].InsertText != "local/llama3.2" {
		t.Errorf("InsertText = %q", got[0].InsertText)
	}
	if got[0].Label != "llama3.2 (llama)" {
		t.Errorf("Label = %q", got[0].Label)
	}
	if got[0].ProviderHint != "local" {
		t.Errorf("ProviderHint = %q", got[0].ProviderHint)
	}
}

func TestSuggestMatchesShortAlias(t *testing.T) {
	s := newTestSuggester()

	got := s.Suggest("4o", false)
	if len(got) != 2 {
		t.Fatalf("got %d suggestions, want 2 (both 4o variants)", len(got))
	}
	// Shorter candidate wins the tie-break.
	if got[0].InsertText != "openai/gpt-4o" {
		t.Errorf("first = %q, want openai/gpt-4o", got[0].InsertText)
	}
}

func TestSuggestMinFragmentLength(t *testing.T) {
	s := newTestSuggester()

	if got := s.Suggest("g", false); got != nil {
		t.Errorf("one-rune implicit fragment should yield nil, got %v", got)
	}
	if got := s.Suggest("g", true); len(got) == 0 {
		t.Error("explicit request should bypass the minimum")
	}
	if got := s.Suggest("", true); len(got) == 0 {
		t.Error("explicit empty fragment should list the corpus")
	}
}

func TestSuggestCaseInsensitive(t *testing.T) {
	s := newTestSuggester()

	if got := s.Suggest("GPT", false); len(got) != 2 {
		t.Errorf("got %d suggestions for GPT, want 2", len(got))
	}
}

func TestSuggestCap(t *testing.T) {
	var candidates []Candidate
	for i := 0; i < 30; i++ {
		candidates = append(candidates, Candidate{
			Provider: "p",
			Long:     fmt.Sprintf("model-%02d", i),
		})
	}
	s := NewSuggester(&staticSource{candidates: candidates})

	if got := s.Suggest("model", false); len(got) != MaxSuggestions {
		t.Errorf("got %d suggestions, want cap of %d", len(got), MaxSuggestions)
	}
}

func TestSuggestStableOrder(t *testing.T) {
	s := newTestSuggester()

	first := s.Suggest("mini", false)
	for i := 0; i < 5; i++ {
		again := s.Suggest("mini", false)
		if len(again) != len(first) {
			t.Fatal("suggestion count changed between runs")
		}
		for j := range first {
			if again[j].InsertText != first[j].InsertText {
				t.Fatalf("run %d: order changed at %d", i, j)
			}
		}
	}
}

func TestSuggestNeverPanics(t *testing.T) {
	s := NewSuggester(brokenSource{})
	if got := s.Suggest("gpt", false); got != nil {
		t.Errorf("broken corpus should yield nil, got %v", got)
	}

	nilSource := NewSuggester(nil)
	if got := nilSource.Suggest("gpt", false); got != nil {
		t.Errorf("nil source should yield nil, got %v", got)
	}
}

func TestSuggestSkipsEmptyLongs(t *testing.T) {
	s := NewSuggester(&staticSource{candidates: []Candidate{
		{Provider: "p", Long: ""},
		{Provider: "p", Long: "real-model"},
	}})

	got := s.Suggest("real", false)
	if len(got) != 1 || got[0].InsertText != "p/real-model" {
		t.Errorf("got %v", got)
	}
}
