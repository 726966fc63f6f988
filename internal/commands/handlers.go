// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/relay-tui/internal/history"
	"github.com/jeranaias/relay-tui/internal/provider"
)

// discoverTimeout bounds a full discovery run triggered from the prompt.
const discoverTimeout = 2 * time.Minute

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// SystemMessageMsg displays an informational message in the conversation.
type SystemMessageMsg struct {
	Content string
}

// ErrorMsg displays an error to the user.
type ErrorMsg struct {
	Title   string
	Message string
	Tip     string
}

// ModelSwitchMsg switches the active model to a resolved scoped string.
type ModelSwitchMsg struct {
	Model    string // "provider/long-id"
	Provider string
}

// ClearConversationMsg clears the current conversation.
type ClearConversationMsg struct{}

// NewConversationMsg starts a fresh conversation.
type NewConversationMsg struct{}

// SaveConversationMsg asks the UI to persist the current conversation.
type SaveConversationMsg struct {
	Title string
}

// ConversationLoadedMsg carries a conversation loaded from history.
type ConversationLoadedMsg struct {
	ID string
}

// SessionListMsg carries saved conversation metadata for display.
type SessionListMsg struct {
	Sessions []SessionInfo
}

// ExportConversationMsg asks the UI to export the current conversation.
type ExportConversationMsg struct {
	Format string // "markdown" or "json"
}

// DiscoveryCompleteMsg reports the outcome of a discovery run.
type DiscoveryCompleteMsg struct {
	Clean      bool
	ModelCount int
	Duration   time.Duration
}

// ThemeMsg changes the color theme.
type ThemeMsg struct {
	Name string
}

// =============================================================================
// NAVIGATION HANDLERS
// =============================================================================

// HandleHelp shows available commands, optionally filtered by category.
func HandleHelp(ctx *Context, args []string) tea.Cmd {
	registry := NewRegistry()
	byCategory := registry.ByCategory()

	filter := ""
	if len(args) > 0 {
		filter = strings.ToLower(args[0])
	}

	var b strings.Builder
	b.WriteString("Available commands:\n")

	for _, category := range []string{"Navigation", "Conversation", "Model", "Settings"} {
		if filter != "" && !strings.EqualFold(category, filter) {
			continue
		}
		cmds, ok := byCategory[category]
		if !ok {
			continue
		}
		b.WriteString("\n" + category + ":\n")
		for _, cmd := range cmds {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			fmt.Fprintf(&b, "  %-28s %s\n", usage, cmd.Description)
			if len(cmd.Aliases) > 0 {
				fmt.Fprintf(&b, "  %-28s aliases: %s\n", "", strings.Join(cmd.Aliases, ", "))
			}
		}
	}

	return func() tea.Msg {
		return SystemMessageMsg{Content: b.String()}
	}
}

// HandleQuit exits the application.
func HandleQuit(ctx *Context, args []string) tea.Cmd {
	return tea.Quit
}

// =============================================================================
// CONVERSATION HANDLERS
// =============================================================================

// HandleNew starts a new conversation.
func HandleNew(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		return NewConversationMsg{}
	}
}

// HandleSave persists the current conversation, with an optional title.
func HandleSave(ctx *Context, args []string) tea.Cmd {
	title := strings.TrimSpace(strings.Join(args, " "))
	return func() tea.Msg {
		return SaveConversationMsg{Title: title}
	}
}

// HandleLoad loads a saved conversation by ID.
func HandleLoad(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		return errorCmd("Load Failed", "no session ID given", "Use /sessions to list saved conversations")
	}
	id := args[0]

	return func() tea.Msg {
		if ctx.History == nil {
			return ErrorMsg{Title: "Load Failed", Message: "history is not available"}
		}
		if _, err := ctx.History.Load(id); err != nil {
			if errors.Is(err, history.ErrNotFound) {
				return ErrorMsg{
					Title:   "Not Found",
					Message: fmt.Sprintf("no conversation with ID %q", id),
					Tip:     "Use /sessions to list saved conversations",
				}
			}
			return ErrorMsg{Title: "Load Failed", Message: err.Error()}
		}
		return ConversationLoadedMsg{ID: id}
	}
}

// HandleSessions lists saved conversations.
func HandleSessions(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		if ctx.History == nil {
			return ErrorMsg{Title: "Sessions", Message: "history is not available"}
		}
		metas, err := ctx.History.List()
		if err != nil {
			return ErrorMsg{Title: "Sessions", Message: err.Error()}
		}

		sessions := make([]SessionInfo, 0, len(metas))
		for _, meta := range metas {
			sessions = append(sessions, SessionInfo{
				ID:      meta.ID,
				Title:   meta.Title,
				Preview: meta.Preview,
			})
		}
		return SessionListMsg{Sessions: sessions}
	}
}

// HandleClear clears the current conversation.
func HandleClear(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		return ClearConversationMsg{}
	}
}

// HandleExport exports the conversation. Defaults to markdown.
func HandleExport(ctx *Context, args []string) tea.Cmd {
	format := "markdown"
	if len(args) > 0 {
		format = strings.ToLower(args[0])
	}
	return func() tea.Msg {
		return ExportConversationMsg{Format: format}
	}
}

// =============================================================================
// MODEL HANDLERS
// =============================================================================

// HandleModel switches the active model, or shows the current one when
// called without arguments.
func HandleModel(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		current := ctx.CurrentModel
		return func() tea.Msg {
			if current == "" {
				return SystemMessageMsg{Content: "No model selected. Use /model <provider/model-id> to pick one."}
			}
			return SystemMessageMsg{Content: "Current model: " + current}
		}
	}

	requested := args[0]
	return func() tea.Msg {
		if ctx.Providers == nil {
			return ErrorMsg{Title: "Model Switch Failed", Message: "no providers configured"}
		}

		rec, long, err := ctx.Providers.Resolve(requested)
		if err != nil {
			var notFound *provider.NotFoundError
			if errors.As(err, &notFound) {
				return ErrorMsg{
					Title:   "Unknown Provider",
					Message: err.Error(),
					Tip:     "Use /providers to list configured providers",
				}
			}
			return ErrorMsg{
				Title:   "Unknown Model",
				Message: err.Error(),
				Tip:     "Use /models to list validated models, or /discover to refresh",
			}
		}

		return ModelSwitchMsg{
			Model:    rec.Key() + "/" + long,
			Provider: rec.Key(),
		}
	}
}

// HandleModels lists every validated model across all providers.
func HandleModels(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		if ctx.Providers == nil || ctx.Providers.Len() == 0 {
			return SystemMessageMsg{Content: "No providers configured."}
		}

		lines := ctx.Providers.ScopedDisplayStrings()
		if len(lines) == 0 {
			return SystemMessageMsg{Content: "No validated models yet. Run /discover first."}
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Validated models (%d):\n", len(lines))
		for _, line := range lines {
			b.WriteString("  " + line + "\n")
		}
		return SystemMessageMsg{Content: b.String()}
	}
}

// HandleProviders lists configured providers and their key status.
func HandleProviders(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		if ctx.Providers == nil || ctx.Providers.Len() == 0 {
			return SystemMessageMsg{Content: "No providers configured."}
		}

		var b strings.Builder
		b.WriteString("Configured providers:\n")
		for _, rec := range ctx.Providers.All() {
			keyStatus := "no key"
			if rec.HasUsableKey() {
				keyStatus = "key " + rec.KeyFingerprint()
			}
			fmt.Fprintf(&b, "  %-12s %s (%s, %d models)\n",
				rec.Key(), rec.BaseAPIURL, keyStatus, rec.ValidModels.Len())
		}
		return SystemMessageMsg{Content: b.String()}
	}
}

// HandleDiscover runs model discovery and validation.
// "/discover" targets all providers; "/discover openai" one provider;
// a trailing "refresh" bypasses fresh listing caches.
func HandleDiscover(ctx *Context, args []string) tea.Cmd {
	var target string
	force := false
	for _, arg := range args {
		if strings.EqualFold(arg, "refresh") {
			force = true
		} else if target == "" {
			target = arg
		}
	}

	return func() tea.Msg {
		if ctx.Providers == nil || ctx.Discovery == nil {
			return ErrorMsg{Title: "Discovery Failed", Message: "discovery is not available"}
		}

		runCtx, cancel := context.WithTimeout(context.Background(), discoverTimeout)
		defer cancel()

		start := time.Now()
		clean, err := ctx.Providers.DiscoverAndValidate(runCtx, ctx.Discovery, provider.DiscoverOptions{
			ForceRefresh:     force,
			PersistOnSuccess: true,
			Provider:         target,
			DataDir:          ctx.DataDir,
		})
		if err != nil {
			var notFound *provider.NotFoundError
			if errors.As(err, &notFound) {
				return ErrorMsg{
					Title:   "Unknown Provider",
					Message: err.Error(),
					Tip:     "Use /providers to list configured providers",
				}
			}
			return ErrorMsg{Title: "Discovery Failed", Message: err.Error()}
		}

		return DiscoveryCompleteMsg{
			Clean:      clean,
			ModelCount: len(ctx.Providers.MergedModels()),
			Duration:   time.Since(start),
		}
	}
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// HandleConfig shows the current configuration.
func HandleConfig(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		if ctx.Config == nil {
			return SystemMessageMsg{Content: "No configuration loaded."}
		}
		cfg := ctx.Config

		var b strings.Builder
		b.WriteString("Configuration:\n")
		fmt.Fprintf(&b, "  default_model:    %s\n", orNone(cfg.DefaultModel))
		fmt.Fprintf(&b, "  theme:            %s\n", cfg.UI.Theme)
		fmt.Fprintf(&b, "  temperature:      %.2f\n", cfg.Chat.Temperature)
		fmt.Fprintf(&b, "  max_tokens:       %d\n", cfg.Chat.MaxTokens)
		fmt.Fprintf(&b, "  request_timeout:  %ds\n", cfg.Chat.RequestTimeoutSecs)
		fmt.Fprintf(&b, "  cache_seconds:    %d\n", cfg.Discovery.CacheSeconds)
		fmt.Fprintf(&b, "  data_dir:         %s\n", ctx.DataDir)
		return SystemMessageMsg{Content: b.String()}
	}
}

// HandleTheme changes the color theme.
func HandleTheme(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		return errorCmd("Theme", "no theme given", "Use /theme <dark|light|auto>")
	}
	name := strings.ToLower(args[0])
	return func() tea.Msg {
		return ThemeMsg{Name: name}
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// errorCmd returns a command that emits an ErrorMsg.
func errorCmd(title, message, tip string) tea.Cmd {
	return func() tea.Msg {
		return ErrorMsg{Title: title, Message: message, Tip: tip}
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
