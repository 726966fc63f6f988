// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the TUI: conversation display,
// input handling, slash commands, tab completion, and streaming.
package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/relay-tui/internal/chat"
	"github.com/jeranaias/relay-tui/internal/commands"
	"github.com/jeranaias/relay-tui/internal/model"
	"github.com/jeranaias/relay-tui/internal/provider"
	"github.com/jeranaias/relay-tui/internal/ui/components"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

// State is the chat view's interaction state.
type State int

const (
	StateReady     State = iota // Accepting input
	StateStreaming              // Receiving a streamed response
	StateError                  // Showing a blocking error
)

// Model is the Bubble Tea model for the chat view.
type Model struct {
	state State
	theme *styles.Theme

	width  int
	height int

	// Application context shared with command handlers.
	ctx *commands.Context

	conversation *model.Conversation
	markdown     *components.MarkdownRenderer

	// Streaming state.
	streamingMsgID string
	streamStats    *model.Statistics
	streamTokens   int
	streamChunks   <-chan chat.StreamChunk
	streamErrs     <-chan error
	cancelStream   func()

	// Command plumbing.
	registry  *commands.Registry
	parser    *commands.Parser
	completer *commands.Completer
	compState *commands.CompletionState

	// Components.
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	lastError *commands.ErrorMsg
	statusMsg string
}

// New creates the chat view. The completer's model corpus is live: it reads
// the provider registry on every keystroke, so discovery results show up in
// completion without a rebuild.
func New(theme *styles.Theme, ctx *commands.Context) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message, or / for commands..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	registry := commands.NewRegistry()
	completer := commands.NewCompleter(registry, &commands.RegistrySource{Registry: ctx.Providers})
	completer.ProvidersFn = func() []string {
		if ctx.Providers == nil {
			return nil
		}
		return ctx.Providers.Names()
	}
	completer.SessionsFn = func() []commands.SessionInfo {
		if ctx.History == nil {
			return nil
		}
		metas, err := ctx.History.List()
		if err != nil {
			return nil
		}
		sessions := make([]commands.SessionInfo, 0, len(metas))
		for _, meta := range metas {
			sessions = append(sessions, commands.SessionInfo{
				ID: meta.ID, Title: meta.Title, Preview: meta.Preview,
			})
		}
		return sessions
	}

	conv := model.NewConversationWithModel(ctx.CurrentModel)

	return Model{
		state:        StateReady,
		theme:        theme,
		ctx:          ctx,
		conversation: conv,
		markdown:     components.NewMarkdownRenderer(76, theme.IsDark),
		registry:     registry,
		parser:       commands.NewParser(registry),
		completer:    completer,
		compState:    commands.NewCompletionState(),
		viewport:     vp,
		input:        ti,
		spinner:      sp,
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.state == StateStreaming {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case StreamStartMsg:
		return m.handleStreamStart(msg)

	case StreamTokenMsg:
		return m.handleStreamToken(msg)

	case StreamCompleteMsg:
		return m.handleStreamComplete(msg)

	case StreamErrorMsg:
		return m.handleStreamError(msg)

	case ErrorDismissMsg:
		m.lastError = nil
		m.state = StateReady
		m.input.Focus()
		return m, textinput.Blink

	case ProvidersReloadedMsg:
		return m.handleProvidersReloaded(msg)
	}

	// Command handler results.
	if handled, next, cmd := m.handleCommandMsg(msg); handled {
		return next, cmd
	}

	// Everything else goes to the viewport for scrolling.
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the chat view.
func (m Model) View() string {
	return m.render()
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	// header + input area + status bar
	const reservedHeight = 5
	vpHeight := m.height - reservedHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = vpHeight

	inputWidth := m.width - 6
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth

	m.theme.SetSize(m.width, m.height)
	m.markdown = components.NewMarkdownRenderer(m.width-4, m.theme.IsDark)
	m.updateViewport()
	return m, nil
}

// handleProvidersReloaded folds an externally edited provider store into the
// shared registry. Add replaces records in place, so every holder of the
// registry pointer sees the update.
func (m Model) handleProvidersReloaded(msg ProvidersReloadedMsg) (tea.Model, tea.Cmd) {
	if m.ctx.Providers == nil {
		return m, nil
	}
	for _, cfg := range msg.Configs {
		m.ctx.Providers.Add(provider.NewRecord(cfg))
	}
	m.statusMsg = "providers reloaded"
	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.state == StateError {
		switch key {
		case "esc", "enter", " ":
			m.lastError = nil
			m.state = StateReady
			m.input.Focus()
			return m, textinput.Blink
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}

	if m.state == StateStreaming {
		switch key {
		case "esc", "ctrl+c":
			return m.cancelStreaming()
		}
		// Scrolling stays available during streaming.
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch key {
	case "ctrl+c":
		if m.input.Value() != "" {
			m.input.Reset()
			m.clearCompletions()
			return m, nil
		}
		return m, tea.Quit

	case "tab":
		return m.handleTabCompletion()

	case "shift+tab":
		if m.compState.Visible {
			m.compState.Prev()
		}
		return m, nil

	case "esc":
		if m.compState.Visible {
			m.clearCompletions()
			return m, nil
		}
		m.input.Reset()
		return m, nil

	case "enter":
		if m.compState.Visible {
			m.acceptCompletion()
			return m, nil
		}
		if strings.TrimSpace(m.input.Value()) != "" {
			return m.submitInput()
		}
		return m, nil

	case "pgup", "ctrl+u":
		m.viewport.HalfViewUp()
		return m, nil

	case "pgdown", "ctrl+d":
		m.viewport.HalfViewDown()
		return m, nil
	}

	// Regular typing: forward to the input, then refresh implicit
	// completion for command input.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.refreshCompletions(false)
	return m, cmd
}

// =============================================================================
// TAB COMPLETION
// =============================================================================

func (m *Model) handleTabCompletion() (tea.Model, tea.Cmd) {
	if m.compState.Visible {
		m.compState.Next()
		return *m, nil
	}
	m.refreshCompletions(true)
	return *m, nil
}

// refreshCompletions recomputes the popup for the current input.
func (m *Model) refreshCompletions(explicit bool) {
	value := m.input.Value()
	if !commands.IsCommand(value) {
		m.clearCompletions()
		return
	}
	completions := m.completer.Complete(value, m.input.Position(), explicit)
	m.compState.Update(value, completions)
}

// acceptCompletion replaces the trailing token with the selected value.
func (m *Model) acceptCompletion() {
	value := m.compState.Accept()
	if value == "" {
		m.clearCompletions()
		return
	}
	m.input.SetValue(applyCompletion(m.input.Value(), value))
	m.input.CursorEnd()
	m.clearCompletions()
}

func (m *Model) clearCompletions() {
	m.compState.Clear()
}

// applyCompletion replaces the trailing partial token of input with value.
// "/model gpt" + "openai/gpt-4o" -> "/model openai/gpt-4o".
func applyCompletion(input, value string) string {
	if strings.HasSuffix(input, " ") {
		return input + value
	}
	if idx := strings.LastIndexAny(input, " \t"); idx >= 0 {
		return input[:idx+1] + value
	}
	return value
}

// =============================================================================
// INPUT SUBMISSION
// =============================================================================

func (m Model) submitInput() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	m.clearCompletions()
	m.statusMsg = ""

	if commands.IsCommand(value) {
		return m.executeCommand(value)
	}
	return m.sendMessage(value)
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) updateViewport() {
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

// addSystemNote appends an informational message to the conversation.
func (m *Model) addSystemNote(content string) {
	m.conversation.AddMessage(model.NewSystemMessage(content))
	m.updateViewport()
}

// GetConversation returns the active conversation.
func (m *Model) GetConversation() *model.Conversation {
	return m.conversation
}

// SetConversation replaces the active conversation.
func (m *Model) SetConversation(conv *model.Conversation) {
	if conv == nil {
		conv = model.NewConversationWithModel(m.ctx.CurrentModel)
	}
	m.conversation = conv
	if conv.Model != "" {
		m.ctx.CurrentModel = conv.Model
	}
	m.updateViewport()
}

// contextPercent exposes conversation context usage for the status bar.
func (m *Model) contextPercent() int {
	if m.conversation == nil {
		return 0
	}
	return int(m.conversation.ContextPercent)
}
