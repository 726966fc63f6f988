// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/relay-tui/internal/commands"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

// RenderError renders a blocking error box with an optional recovery tip.
func RenderError(theme *styles.Theme, err *commands.ErrorMsg, width int) string {
	if err == nil {
		return ""
	}

	boxWidth := width - 4
	if boxWidth < 30 {
		boxWidth = 30
	}

	var b strings.Builder
	b.WriteString(theme.ErrorTitle.Render("✗ " + err.Title))
	b.WriteString("\n\n")
	b.WriteString(theme.ErrorMessage.Render(err.Message))
	if err.Tip != "" {
		b.WriteString("\n\n")
		b.WriteString(theme.ErrorTip.Render("Tip: " + err.Tip))
	}
	b.WriteString("\n\n")
	b.WriteString(theme.StatusMuted.Render("Press Esc or Enter to dismiss"))

	return theme.ErrorBox.Width(boxWidth).Render(
		lipgloss.NewStyle().Width(boxWidth - 2).Render(b.String()),
	)
}
