// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"
	"strings"

	"github.com/jeranaias/relay-tui/internal/diag"
	"github.com/jeranaias/relay-tui/internal/provider"
	"github.com/jeranaias/relay-tui/internal/suggest"
)

// =============================================================================
// COMPLETER
// =============================================================================

// Completer routes tab completion for commands and arguments. Model
// arguments go to the fuzzy model suggester; everything else gets plain
// prefix completion.
//
// Completion runs on the keystroke path, so Complete never returns an error
// and never panics: any internal failure collapses to zero completions.
type Completer struct {
	registry  *Registry
	suggester *suggest.Suggester

	// Callbacks for dynamic completion, set by the application.
	SessionsFn  func() []SessionInfo // Returns saved conversations
	ProvidersFn func() []string      // Returns provider keys
}

// SessionInfo contains metadata about a saved conversation for completion.
type SessionInfo struct {
	ID      string
	Title   string
	Preview string
}

// NewCompleter creates a completer over the command registry and a model
// suggestion source (typically the provider registry).
func NewCompleter(registry *Registry, source suggest.Source) *Completer {
	return &Completer{
		registry:  registry,
		suggester: suggest.NewSuggester(source),
	}
}

// Complete returns completions for the given input at the cursor position.
//
// explicit marks a deliberate completion request (the user pressed Tab);
// implicit per-keystroke completion applies the suggester's minimum fragment
// length.
func (c *Completer) Complete(input string, cursorPos int, explicit bool) (completions []Completion) {
	defer func() {
		if p := recover(); p != nil {
			diag.Logf("completion: recovered: %v", p)
			completions = nil
		}
	}()

	if cursorPos < len(input) {
		input = input[:cursorPos]
	}

	if !IsCommand(input) {
		return nil
	}

	trimmed := strings.TrimLeft(input, " \t")
	parts := splitCommandLine(trimmed)
	if len(parts) == 0 {
		return c.completeCommands("")
	}

	// Still typing the command name?
	if len(parts) == 1 && !strings.HasSuffix(trimmed, " ") {
		return c.completeCommands(parts[0])
	}

	cmd := c.registry.Get(parts[0])
	if cmd == nil {
		return nil
	}

	argIndex := len(parts) - 2
	if strings.HasSuffix(trimmed, " ") {
		argIndex++
	}

	partial := ""
	if !strings.HasSuffix(trimmed, " ") && len(parts) > 1 {
		partial = parts[len(parts)-1]
	}

	return c.completeArg(cmd, argIndex, partial, explicit)
}

// =============================================================================
// COMMAND COMPLETION
// =============================================================================

// completeCommands returns completions for command names.
func (c *Completer) completeCommands(partial string) []Completion {
	var completions []Completion
	partial = strings.ToLower(partial)

	for _, cmd := range c.registry.All() {
		if cmd.Hidden {
			continue
		}

		if strings.HasPrefix(strings.ToLower(cmd.Name), partial) {
			completions = append(completions, Completion{
				Value:       cmd.Name,
				Display:     cmd.Name,
				Description: cmd.Description,
				Score:       calculateScore(cmd.Name, partial),
			})
		}

		for _, alias := range cmd.Aliases {
			if strings.HasPrefix(strings.ToLower(alias), partial) {
				completions = append(completions, Completion{
					Value:       alias,
					Display:     alias + " -> " + cmd.Name,
					Description: cmd.Description,
					Score:       calculateScore(alias, partial) - 10,
				})
			}
		}
	}

	sortCompletions(completions)
	return completions
}

// =============================================================================
// ARGUMENT COMPLETION
// =============================================================================

// completeArg routes completion by argument type.
func (c *Completer) completeArg(cmd *Command, argIndex int, partial string, explicit bool) []Completion {
	if argIndex < 0 || argIndex >= len(cmd.Args) {
		return nil
	}

	switch cmd.Args[argIndex].Type {
	case ArgTypeModel:
		return c.completeModels(partial, explicit)
	case ArgTypeSession:
		return c.completeSessions(partial)
	case ArgTypeProvider:
		return c.completeProviders(partial)
	case ArgTypeEnum:
		return c.completeFromList(cmd.Args[argIndex].Values, partial)
	default:
		return nil
	}
}

// completeModels delegates to the fuzzy model suggester.
func (c *Completer) completeModels(partial string, explicit bool) []Completion {
	suggestions := c.suggester.Suggest(partial, explicit)

	completions := make([]Completion, 0, len(suggestions))
	for i, s := range suggestions {
		completions = append(completions, Completion{
			Value:       s.InsertText,
			Display:     s.Label,
			Description: s.ProviderHint,
			// The suggester already ranked; preserve its order.
			Score: len(suggestions) - i,
		})
	}
	return completions
}

// completeSessions returns completions for conversation IDs.
func (c *Completer) completeSessions(partial string) []Completion {
	if c.SessionsFn == nil {
		return nil
	}

	var completions []Completion
	partial = strings.ToLower(partial)

	for _, session := range c.SessionsFn() {
		idMatch := strings.HasPrefix(strings.ToLower(session.ID), partial)
		titleMatch := strings.Contains(strings.ToLower(session.Title), partial)
		if !idMatch && !titleMatch {
			continue
		}

		score := calculateScore(session.ID, partial)
		if titleMatch && !idMatch {
			score -= 5
		}

		display := session.ID
		if session.Title != "" {
			display = session.ID + " - " + truncate(session.Title, 30)
		}

		completions = append(completions, Completion{
			Value:       session.ID,
			Display:     display,
			Description: session.Preview,
			Score:       score,
		})
	}

	sortCompletions(completions)
	return completions
}

// completeProviders returns completions for provider keys.
func (c *Completer) completeProviders(partial string) []Completion {
	if c.ProvidersFn == nil {
		return nil
	}
	return c.completeFromList(c.ProvidersFn(), partial)
}

// completeFromList returns prefix completions from a list of strings.
func (c *Completer) completeFromList(values []string, partial string) []Completion {
	var completions []Completion
	partial = strings.ToLower(partial)

	for _, value := range values {
		if strings.HasPrefix(strings.ToLower(value), partial) {
			completions = append(completions, Completion{
				Value:   value,
				Display: value,
				Score:   calculateScore(value, partial),
			})
		}
	}

	sortCompletions(completions)
	return completions
}

// =============================================================================
// MODEL SUGGESTION SOURCE
// =============================================================================

// RegistrySource adapts the provider registry to the suggester's corpus
// interface.
type RegistrySource struct {
	Registry *provider.Registry
}

// SuggestionCandidates returns every validated model across all providers,
// in registry iteration order.
func (s *RegistrySource) SuggestionCandidates() []suggest.Candidate {
	if s.Registry == nil {
		return nil
	}

	merged := s.Registry.MergedModels()
	candidates := make([]suggest.Candidate, 0, len(merged))
	for _, m := range merged {
		candidates = append(candidates, suggest.Candidate{
			Provider: m.Provider,
			Long:     m.Long,
			Short:    m.Short,
		})
	}
	return candidates
}

// =============================================================================
// HELPERS
// =============================================================================

// calculateScore calculates a match score for completion ranking.
// Higher score = better match.
func calculateScore(value, partial string) int {
	value = strings.ToLower(value)
	partial = strings.ToLower(partial)

	score := 100
	if value == partial {
		return score + 100
	}
	if strings.HasPrefix(value, partial) {
		score += 50
		score += 20 - len(value)
	}
	score -= len(value) / 2
	return score
}

// sortCompletions sorts by score (descending), then alphabetically.
func sortCompletions(completions []Completion) {
	sort.Slice(completions, func(i, j int) bool {
		if completions[i].Score != completions[j].Score {
			return completions[i].Score > completions[j].Score
		}
		return completions[i].Value < completions[j].Value
	})
}

// truncate truncates a string to maxLen runes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// =============================================================================
// COMPLETION NAVIGATION
// =============================================================================

// CompletionState holds the state for navigating completions in the UI.
type CompletionState struct {
	// Original input before completion
	OriginalInput string

	// Current completions
	Completions []Completion

	// Selected index (-1 for none)
	Selected int

	// Visible indicates if completions should be shown
	Visible bool
}

// NewCompletionState creates a new completion state.
func NewCompletionState() *CompletionState {
	return &CompletionState{Selected: -1}
}

// Update updates the completion state with new completions.
func (cs *CompletionState) Update(input string, completions []Completion) {
	cs.OriginalInput = input
	cs.Completions = completions
	cs.Selected = 0
	cs.Visible = len(completions) > 0
}

// Next moves to the next completion.
func (cs *CompletionState) Next() {
	if len(cs.Completions) == 0 {
		return
	}
	cs.Selected = (cs.Selected + 1) % len(cs.Completions)
}

// Prev moves to the previous completion.
func (cs *CompletionState) Prev() {
	if len(cs.Completions) == 0 {
		return
	}
	cs.Selected--
	if cs.Selected < 0 {
		cs.Selected = len(cs.Completions) - 1
	}
}

// Accept returns the selected completion value, or empty if none.
func (cs *CompletionState) Accept() string {
	if cs.Selected < 0 || cs.Selected >= len(cs.Completions) {
		if len(cs.Completions) > 0 {
			return cs.Completions[0].Value
		}
		return ""
	}
	return cs.Completions[cs.Selected].Value
}

// Clear clears the completion state.
func (cs *CompletionState) Clear() {
	cs.OriginalInput = ""
	cs.Completions = nil
	cs.Selected = -1
	cs.Visible = false
}

// GetSelected returns the currently selected completion, or nil.
func (cs *CompletionState) GetSelected() *Completion {
	if cs.Selected < 0 || cs.Selected >= len(cs.Completions) {
		return nil
	}
	return &cs.Completions[cs.Selected]
}
