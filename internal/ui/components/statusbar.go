// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

// StatusInfo carries the fields shown in the status bar.
type StatusInfo struct {
	// State is a short state label ("ready", "streaming", ...).
	State string

	// Streaming marks the state label as active.
	Streaming bool

	// ContextPercent is the conversation context usage, 0-100.
	ContextPercent int

	// Message is a transient status message, shown in place of shortcuts.
	Message string
}

// statusShortcuts is the hint line shown when no transient message is up.
var statusShortcuts = [][2]string{
	{"tab", "complete"},
	{"/help", "commands"},
	{"esc", "cancel"},
	{"ctrl+c", "quit"},
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(theme *styles.Theme, info StatusInfo, width int) string {
	var left string
	if info.Streaming {
		left = theme.StatusActive.Render("● " + info.State)
	} else {
		left = theme.StatusMuted.Render("○ " + info.State)
	}

	if info.ContextPercent > 0 {
		ctx := fmt.Sprintf(" · ctx %d%%", info.ContextPercent)
		if info.ContextPercent >= 75 {
			left += theme.StatusActive.Render(ctx)
		} else {
			left += theme.StatusMuted.Render(ctx)
		}
	}

	var right string
	if info.Message != "" {
		right = theme.StatusMuted.Render(runewidth.Truncate(info.Message, width/2, "…"))
	} else {
		var parts []string
		for _, sc := range statusShortcuts {
			parts = append(parts,
				theme.ShortcutKey.Render(sc[0])+" "+theme.ShortcutDesc.Render(sc[1]))
		}
		right = strings.Join(parts, "  ")
	}

	return theme.StatusBar.Width(width).Render(left + "  " + right)
}
