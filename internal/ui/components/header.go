// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

// RenderHeader renders the one-line application header: brand on the left,
// the active model on the right.
func RenderHeader(theme *styles.Theme, modelName string, width int) string {
	title := theme.HeaderTitle.Render("relay")

	right := ""
	if modelName != "" {
		right = theme.HeaderModel.Render(runewidth.Truncate(modelName, width/2, "…"))
	}

	gap := width - lipgloss.Width(title) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}

	return theme.Header.Width(width).Render(
		title + lipgloss.NewStyle().Width(gap).Render("") + right,
	)
}
