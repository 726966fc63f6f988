// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/jeranaias/relay-tui/internal/commands"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

func TestRenderCompletions(t *testing.T) {
	theme := styles.NewTheme()

	state := commands.NewCompletionState()
	state.Update("/model gpt", []commands.Completion{
		{Value: "openai/gpt-4o", Display: "gpt-4o (4o)", Description: "openai"},
		{Value: "openai/gpt-4o-mini", Display: "gpt-4o-mini (4o-mini)", Description: "openai"},
	})

	out := RenderCompletions(theme, state, 80)
	if out == "" {
		t.Fatal("expected rendered popup")
	}
	if !strings.Contains(out, "gpt-4o") {
		t.Errorf("popup missing candidate:\n%s", out)
	}

	// Hidden state renders nothing.
	state.Clear()
	if got := RenderCompletions(theme, state, 80); got != "" {
		t.Errorf("cleared state should render empty, got %q", got)
	}
	if got := RenderCompletions(theme, nil, 80); got != "" {
		t.Errorf("nil state should render empty, got %q", got)
	}
}

func TestRenderError(t *testing.T) {
	theme := styles.NewTheme()

	out := RenderError(theme, &commands.ErrorMsg{
		Title:   "Unknown Model",
		Message: "model not found: gpt-99",
		Tip:     "Use /models to list validated models",
	}, 80)

	for _, want := range []string{"Unknown Model", "gpt-99", "/models"} {
		if !strings.Contains(out, want) {
			t.Errorf("error box missing %q", want)
		}
	}

	if got := RenderError(theme, nil, 80); got != "" {
		t.Errorf("nil error should render empty, got %q", got)
	}
}

func TestRenderHeaderAndStatusBar(t *testing.T) {
	theme := styles.NewTheme()

	header := RenderHeader(theme, "openai/gpt-4o", 80)
	if !strings.Contains(header, "relay") || !strings.Contains(header, "gpt-4o") {
		t.Errorf("header = %q", header)
	}

	bar := RenderStatusBar(theme, StatusInfo{State: "ready", ContextPercent: 42}, 80)
	if !strings.Contains(bar, "ready") || !strings.Contains(bar, "42%") {
		t.Errorf("status bar = %q", bar)
	}

	busy := RenderStatusBar(theme, StatusInfo{State: "streaming", Streaming: true, Message: "saved"}, 80)
	if !strings.Contains(busy, "saved") {
		t.Errorf("status message missing: %q", busy)
	}
}

func TestMarkdownRendererFallback(t *testing.T) {
	// A zero-value renderer must pass text through unchanged.
	var r *MarkdownRenderer
	if got := r.Render("plain text"); got != "plain text" {
		t.Errorf("nil renderer = %q", got)
	}

	rendered := NewMarkdownRenderer(60, true).Render("# Title\n\nbody")
	if rendered == "" {
		t.Error("renderer produced no output")
	}
}

func TestHighlightCodeUnknownLanguage(t *testing.T) {
	code := "some opaque text without structure"
	if got := HighlightCode(code, "not-a-language", true); got == "" {
		t.Error("highlight must never drop content")
	}
}
