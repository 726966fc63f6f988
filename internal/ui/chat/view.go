// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/relay-tui/internal/model"
	"github.com/jeranaias/relay-tui/internal/ui/components"
)

// =============================================================================
// LAYOUT
// =============================================================================

// render assembles the full view: header, conversation, input, status bar.
func (m Model) render() string {
	if m.width == 0 {
		return "starting relay..."
	}

	var sections []string

	sections = append(sections, components.RenderHeader(m.theme, m.ctx.CurrentModel, m.width))
	sections = append(sections, m.viewport.View())

	if m.state == StateError && m.lastError != nil {
		sections = append(sections, components.RenderError(m.theme, m.lastError, m.width))
	} else if m.compState.Visible {
		sections = append(sections, components.RenderCompletions(m.theme, m.compState, m.width))
	}

	sections = append(sections, m.renderInput())
	sections = append(sections, m.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderInput renders the input line, or the spinner while streaming.
func (m Model) renderInput() string {
	if m.state == StateStreaming {
		line := m.theme.Spinner.Render(m.spinner.View()) + " " +
			m.theme.ThinkingText.Render("thinking... (esc to cancel)")
		return m.theme.InputContainer.Width(m.width).Render(line)
	}
	return m.theme.InputContainer.Width(m.width).Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	state := "ready"
	switch m.state {
	case StateStreaming:
		state = "streaming"
	case StateError:
		state = "error"
	}
	return components.RenderStatusBar(m.theme, components.StatusInfo{
		State:          state,
		Streaming:      m.state == StateStreaming,
		ContextPercent: m.contextPercent(),
		Message:        m.statusMsg,
	}, m.width)
}

// =============================================================================
// CONVERSATION RENDERING
// =============================================================================

// renderMessages renders the conversation transcript for the viewport.
func (m Model) renderMessages() string {
	if m.conversation == nil || len(m.conversation.Messages) == 0 {
		return m.renderWelcome()
	}

	var b strings.Builder
	for i, msg := range m.conversation.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderMessage(msg *model.Message) string {
	var b strings.Builder

	switch msg.Role {
	case model.RoleUser:
		b.WriteString(m.theme.UserLabel.Render("You"))
		b.WriteString(m.theme.MessageMeta.Render("  " + msg.Timestamp.Format("15:04")))
		b.WriteString("\n")
		b.WriteString(m.theme.MessageBody.Render(msg.GetDisplayContent()))

	case model.RoleAssistant:
		label := "Assistant"
		if msg.Model != "" {
			label = msg.Model
		}
		b.WriteString(m.theme.AssistantLabel.Render(label))
		b.WriteString(m.theme.MessageMeta.Render("  " + msg.Timestamp.Format("15:04")))
		b.WriteString("\n")
		b.WriteString(m.renderAssistantBody(msg))
		if stats := msg.FormatStats(); stats != "" && !msg.IsStreaming {
			b.WriteString("\n")
			b.WriteString(m.theme.MessageMeta.Render(stats))
		}

	case model.RoleSystem:
		b.WriteString(m.theme.SystemLabel.Render("relay"))
		b.WriteString("\n")
		b.WriteString(m.theme.StatusMuted.Render(msg.GetDisplayContent()))
	}

	return b.String()
}

// renderAssistantBody renders assistant content. Finalized messages go
// through the markdown renderer; streaming content is shown raw because
// re-rendering partial markdown on every token flickers badly.
func (m Model) renderAssistantBody(msg *model.Message) string {
	content := msg.GetDisplayContent()
	if content == "" {
		if msg.IsStreaming {
			return m.theme.ThinkingText.Render("...")
		}
		return m.theme.StatusMuted.Render("(no response)")
	}
	if msg.IsStreaming {
		return m.theme.MessageBody.Render(content)
	}
	return m.markdown.Render(content)
}

// renderWelcome fills the empty conversation view.
func (m Model) renderWelcome() string {
	lines := []string{
		"",
		m.theme.HeaderTitle.Render("  relay"),
		m.theme.StatusMuted.Render("  A terminal client for OpenAI-compatible chat APIs."),
		"",
		m.theme.StatusMuted.Render("  Type a message to start, or:"),
		"",
		"    " + m.theme.ShortcutKey.Render("/model") + m.theme.ShortcutDesc.Render("     switch models"),
		"    " + m.theme.ShortcutKey.Render("/discover") + m.theme.ShortcutDesc.Render("  find validated models"),
		"    " + m.theme.ShortcutKey.Render("/help") + m.theme.ShortcutDesc.Render("      all commands"),
		"",
	}
	return strings.Join(lines, "\n")
}
