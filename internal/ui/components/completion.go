// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable view components for the relay TUI.
package components

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/relay-tui/internal/commands"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

// maxVisibleCompletions caps the popup height; the suggester already caps
// the model list, this guards command and session lists too.
const maxVisibleCompletions = 8

// RenderCompletions renders the completion popup above the input line.
// Returns empty when there is nothing to show.
func RenderCompletions(theme *styles.Theme, state *commands.CompletionState, width int) string {
	if state == nil || !state.Visible || len(state.Completions) == 0 {
		return ""
	}

	items := state.Completions
	if len(items) > maxVisibleCompletions {
		items = items[:maxVisibleCompletions]
	}

	// Column width for the inserted value, so descriptions line up.
	valueWidth := 0
	for _, item := range items {
		if w := runewidth.StringWidth(item.Display); w > valueWidth {
			valueWidth = w
		}
	}

	innerWidth := width - 6
	if innerWidth < 20 {
		innerWidth = 20
	}

	var lines []string
	for i, item := range items {
		// Style after truncation; escape codes would throw off the width math.
		line := runewidth.FillRight(item.Display, valueWidth)
		if item.Description != "" {
			line += "  " + item.Description
		}
		line = runewidth.Truncate(line, innerWidth, "…")

		if i == state.Selected {
			line = theme.CompletionSelected.Render("▸ " + line)
		} else {
			line = theme.CompletionItem.Render("  " + line)
		}
		lines = append(lines, line)
	}

	return theme.CompletionPopup.Render(strings.Join(lines, "\n"))
}
