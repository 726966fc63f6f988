// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/relay-tui/internal/diag"
)

// MarkdownRenderer renders assistant markdown for the terminal. Rebuilt on
// resize and theme changes; rendering itself is stateless.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer for the given width and background.
func NewMarkdownRenderer(width int, dark bool) *MarkdownRenderer {
	style := "light"
	if dark {
		style = "dark"
	}

	if width < 20 {
		width = 20
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		diag.Logf("markdown: renderer init failed: %v", err)
		return &MarkdownRenderer{}
	}
	return &MarkdownRenderer{renderer: r}
}

// Render renders markdown to styled terminal output. On any failure the
// raw text comes back unchanged; a render bug must never lose content.
func (m *MarkdownRenderer) Render(text string) string {
	if m == nil || m.renderer == nil {
		return text
	}

	out, err := m.renderer.Render(text)
	if err != nil {
		diag.Logf("markdown: render failed: %v", err)
		return text
	}
	// Glamour pads with blank lines top and bottom; the message layout
	// handles its own spacing.
	return strings.Trim(out, "\n")
}
