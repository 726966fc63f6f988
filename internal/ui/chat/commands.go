// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/relay-tui/internal/commands"
	"github.com/jeranaias/relay-tui/internal/diag"
	"github.com/jeranaias/relay-tui/internal/export"
	"github.com/jeranaias/relay-tui/internal/model"
	"github.com/jeranaias/relay-tui/internal/ui/components"
)

// =============================================================================
// COMMAND EXECUTION
// =============================================================================

// executeCommand parses and runs a slash command.
func (m Model) executeCommand(input string) (tea.Model, tea.Cmd) {
	result := m.parser.Parse(input)

	if result.Command == nil {
		m.lastError = &commands.ErrorMsg{
			Title:   "Unknown Command",
			Message: fmt.Sprintf("%s is not a relay command.", result.CommandName),
			Tip:     "Type /help to list available commands",
		}
		m.state = StateError
		return m, nil
	}

	if err := commands.ValidateArgs(result.Command, result.Args); err != nil {
		m.lastError = &commands.ErrorMsg{
			Title:   "Invalid Arguments",
			Message: err.Error(),
			Tip:     "Usage: " + result.Command.Usage,
		}
		m.state = StateError
		return m, nil
	}

	return m, result.Command.Handler(m.ctx, result.Args)
}

// =============================================================================
// COMMAND MESSAGE HANDLERS
// =============================================================================

// handleCommandMsg processes messages emitted by command handlers. The first
// return value reports whether the message was recognized.
func (m Model) handleCommandMsg(msg tea.Msg) (bool, tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case commands.SystemMessageMsg:
		m.addSystemNote(msg.Content)
		return true, m, nil

	case commands.ErrorMsg:
		m.lastError = &msg
		m.state = StateError
		return true, m, nil

	case commands.ModelSwitchMsg:
		return true, m.switchModel(msg), nil

	case commands.ClearConversationMsg:
		m.conversation.ClearHistory()
		m.updateViewport()
		m.statusMsg = "conversation cleared"
		return true, m, nil

	case commands.NewConversationMsg:
		m.conversation = model.NewConversationWithModel(m.ctx.CurrentModel)
		m.updateViewport()
		m.statusMsg = "new conversation"
		return true, m, nil

	case commands.SaveConversationMsg:
		return true, m.saveConversation(msg.Title), nil

	case commands.ConversationLoadedMsg:
		return true, m.loadConversation(msg.ID), nil

	case commands.SessionListMsg:
		m.addSystemNote(formatSessionList(msg.Sessions))
		return true, m, nil

	case commands.ExportConversationMsg:
		return true, m.exportConversation(msg.Format), nil

	case commands.DiscoveryCompleteMsg:
		status := "completed"
		if !msg.Clean {
			status = "completed with errors (see relay.log)"
		}
		m.addSystemNote(fmt.Sprintf(
			"Discovery %s in %s: %d validated models.",
			status, msg.Duration.Round(time.Millisecond), msg.ModelCount))
		return true, m, nil

	case commands.ThemeMsg:
		m.theme.ApplyMode(msg.Name)
		width := m.width
		if width == 0 {
			width = 80
		}
		m.markdown = components.NewMarkdownRenderer(width-4, m.theme.IsDark)
		m.updateViewport()
		m.statusMsg = "theme: " + msg.Name
		return true, m, nil
	}

	return false, m, nil
}

// switchModel applies a model switch to the conversation and context.
func (m Model) switchModel(msg commands.ModelSwitchMsg) tea.Model {
	m.ctx.CurrentModel = msg.Model
	m.conversation.Model = msg.Model
	m.addSystemNote("Switched to " + msg.Model + ".")
	return m
}

// saveConversation persists the current conversation.
func (m Model) saveConversation(title string) tea.Model {
	if m.ctx.History == nil {
		m.statusMsg = "history unavailable"
		return m
	}
	if m.conversation.IsEmpty() {
		m.statusMsg = "nothing to save"
		return m
	}
	if title != "" {
		m.conversation.SetTitle(title)
	}
	if err := m.ctx.History.Save(m.conversation); err != nil {
		diag.Logf("history: save failed: %v", err)
		m.lastError = &commands.ErrorMsg{
			Title:   "Save Failed",
			Message: err.Error(),
		}
		m.state = StateError
		return m
	}
	m.statusMsg = "saved: " + m.conversation.GetTitle()
	return m
}

// loadConversation swaps in a saved conversation by ID.
func (m Model) loadConversation(id string) tea.Model {
	if m.ctx.History == nil {
		return m
	}
	conv, err := m.ctx.History.Load(id)
	if err != nil {
		diag.Logf("history: load failed: %v", err)
		m.lastError = &commands.ErrorMsg{
			Title:   "Load Failed",
			Message: err.Error(),
			Tip:     "Use /sessions to list saved conversations",
		}
		m.state = StateError
		return m
	}
	m.SetConversation(conv)
	m.statusMsg = "loaded: " + conv.GetTitle()
	return m
}

// exportConversation writes the conversation to a file in the data directory.
func (m Model) exportConversation(format string) tea.Model {
	if m.conversation.IsEmpty() {
		m.statusMsg = "nothing to export"
		return m
	}

	opts := export.DefaultOptions()
	if m.ctx.DataDir != "" {
		opts.OutputDir = filepath.Join(m.ctx.DataDir, "exports")
	}

	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		m.lastError = &commands.ErrorMsg{
			Title:   "Export Failed",
			Message: err.Error(),
			Tip:     "Supported formats: markdown, json",
		}
		m.state = StateError
		return m
	}

	path, err := export.ExportToFile(m.conversation, exporter, opts)
	if err != nil {
		diag.Logf("export: %v", err)
		m.lastError = &commands.ErrorMsg{
			Title:   "Export Failed",
			Message: err.Error(),
		}
		m.state = StateError
		return m
	}

	m.addSystemNote("Exported to " + path + ".")
	return m
}

// formatSessionList renders saved sessions as a system note.
func formatSessionList(sessions []commands.SessionInfo) string {
	if len(sessions) == 0 {
		return "No saved conversations. Use /save to keep the current one."
	}

	var b strings.Builder
	b.WriteString("Saved conversations:\n")
	for _, s := range sessions {
		fmt.Fprintf(&b, "  %-14s %s", s.ID, s.Title)
		if s.Preview != "" {
			fmt.Fprintf(&b, "  %s", s.Preview)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nLoad one with /load <session_id>.")
	return b.String()
}
