// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package suggest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jeranaias/relay-tui/internal/diag"
)

const (
	// MaxSuggestions caps the dropdown: bounds both scoring cost and
	// on-screen noise.
	MaxSuggestions = 8

	// MinFragmentLen suppresses suggestions for nearly-empty input unless
	// completion is explicitly requested.
	MinFragmentLen = 2
)

// Candidate is one suggestible model: its owning provider plus the long
// identifier and short alias.
type Candidate struct {
	Provider string
	Long     string
	Short    string
}

// Source supplies the suggestion corpus. Implemented by the provider
// registry; an interface here so the suggester can be tested with a fixed
// corpus and so a panicking source stays contained.
type Source interface {
	SuggestionCandidates() []Candidate
}

// Suggestion is one completion record for the UI layer. ProviderHint lets
// the dropdown show provider context without polluting the inserted text.
type Suggestion struct {
	InsertText   string
	Label        string
	ProviderHint string
}

// Suggester ranks model candidates against a typed fragment.
type Suggester struct {
	source Source
}

// NewSuggester creates a suggester over the given corpus source.
func NewSuggester(source Source) *Suggester {
	return &Suggester{source: source}
}

// Suggest returns ranked suggestions for a fragment.
//
// Fragments shorter than MinFragmentLen return nothing unless explicit is
// set (the user pressed the completion key on purpose). Candidates must
// contain the fragment (case-insensitive); among those, Jaro-Winkler
// similarity ranks them, ties broken by shorter candidate first, capped at
// MaxSuggestions.
//
// This runs on the keystroke path: it must never block on I/O and never
// propagate a failure - a broken corpus collapses to zero suggestions.
func (s *Suggester) Suggest(fragment string, explicit bool) (suggestions []Suggestion) {
	defer func() {
		if p := recover(); p != nil {
			diag.Logf("suggest: recovered: %v", p)
			suggestions = nil
		}
	}()

	frag := strings.ToLower(strings.TrimSpace(fragment))
	if len(frag) < MinFragmentLen && !explicit {
		return nil
	}
	if s.source == nil {
		return nil
	}

	type scored struct {
		cand  Candidate
		score float64
	}

	var matches []scored
	for _, cand := range s.source.SuggestionCandidates() {
		if cand.Long == "" {
			continue
		}
		long := strings.ToLower(cand.Long)
		short := strings.ToLower(cand.Short)

		score := -1.0
		if frag == "" || strings.Contains(long, frag) {
			score = JaroWinkler(frag, long)
		}
		if short != "" && (frag == "" || strings.Contains(short, frag)) {
			if alt := JaroWinkler(frag, short); alt > score {
				score = alt
			}
		}
		if score < 0 {
			continue
		}
		matches = append(matches, scored{cand: cand, score: score})
	}

	// Descending score; ties favor the shorter candidate, then lexical
	// order for stability across runs.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		li, lj := len(matches[i].cand.Long), len(matches[j].cand.Long)
		if li != lj {
			return li < lj
		}
		return matches[i].cand.Long < matches[j].cand.Long
	})

	if len(matches) > MaxSuggestions {
		matches = matches[:MaxSuggestions]
	}

	suggestions = make([]Suggestion, 0, len(matches))
	for _, m := range matches {
		suggestions = append(suggestions, Suggestion{
			InsertText:   m.cand.Provider + "/" + m.cand.Long,
			Label:        formatLabel(m.cand),
			ProviderHint: m.cand.Provider,
		})
	}
	return suggestions
}

func formatLabel(c Candidate) string {
	if c.Short != "" && c.Short != c.Long {
		return fmt.Sprintf("%s (%s)", c.Long, c.Short)
	}
	return c.Long
}
