// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/relay-tui/internal/chat"
	"github.com/jeranaias/relay-tui/internal/commands"
	"github.com/jeranaias/relay-tui/internal/model"
	"github.com/jeranaias/relay-tui/internal/provider"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

func newTestModel(t *testing.T) Model {
	t.Helper()

	models := provider.NewModelMap()
	models.Set("gpt-4o", "4o")

	registry := provider.NewRegistry()
	registry.Add(provider.NewRecord(provider.PersistedProviderConfig{
		Name:        "openai",
		BaseAPIURL:  "https://api.openai.com/v1",
		APIKey:      "sk-test",
		ValidModels: models,
	}))

	ctx := &commands.Context{
		Providers:    registry,
		CurrentModel: "openai/gpt-4o",
	}

	m := New(styles.NewTheme(), ctx)
	m.width = 80
	m.height = 24
	return m
}

func contentChunk(t *testing.T, content string) chat.StreamChunk {
	t.Helper()
	var c chat.StreamChunk
	payload := `{"choices":[{"delta":{"content":` + jsonString(content) + `}}]}`
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		t.Fatalf("chunk fixture: %v", err)
	}
	return c
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// =============================================================================
// COMPLETION INSERTION
// =============================================================================

func TestApplyCompletion(t *testing.T) {
	tests := []struct {
		name  string
		input string
		value string
		want  string
	}{
		{"replaces trailing token", "/model gpt", "openai/gpt-4o", "/model openai/gpt-4o"},
		{"appends after space", "/model ", "openai/gpt-4o", "/model openai/gpt-4o"},
		{"replaces bare command", "/mo", "/model", "/model"},
		{"keeps earlier args", "/discover openai re", "refresh", "/discover openai refresh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := applyCompletion(tt.input, tt.value); got != tt.want {
				t.Errorf("applyCompletion(%q, %q) = %q, want %q", tt.input, tt.value, got, tt.want)
			}
		})
	}
}

// =============================================================================
// STREAM PUMP
// =============================================================================

func TestReadStreamDeliversToken(t *testing.T) {
	m := newTestModel(t)

	chunks := make(chan chat.StreamChunk, 1)
	errs := make(chan error, 1)
	chunks <- contentChunk(t, "hello")

	m.streamChunks = chunks
	m.streamErrs = errs
	m.streamingMsgID = "msg_1"

	msg := m.readStream()()
	token, ok := msg.(StreamTokenMsg)
	if !ok {
		t.Fatalf("msg type = %T, want StreamTokenMsg", msg)
	}
	if token.Content != "hello" || token.MessageID != "msg_1" {
		t.Errorf("token = %+v", token)
	}
}

func TestReadStreamCompletesOnClose(t *testing.T) {
	m := newTestModel(t)

	chunks := make(chan chat.StreamChunk)
	errs := make(chan error, 1)
	close(chunks)
	close(errs)

	m.streamChunks = chunks
	m.streamErrs = errs
	m.streamingMsgID = "msg_1"

	msg := m.readStream()()
	if _, ok := msg.(StreamCompleteMsg); !ok {
		t.Fatalf("msg type = %T, want StreamCompleteMsg", msg)
	}
}

func TestReadStreamReportsError(t *testing.T) {
	m := newTestModel(t)

	chunks := make(chan chat.StreamChunk)
	errs := make(chan error, 1)
	errs <- errors.New("connection reset")
	close(chunks)
	close(errs)

	m.streamChunks = chunks
	m.streamErrs = errs
	m.streamingMsgID = "msg_1"

	msg := m.readStream()()
	errMsg, ok := msg.(StreamErrorMsg)
	if !ok {
		t.Fatalf("msg type = %T, want StreamErrorMsg", msg)
	}
	if errMsg.Err == nil {
		t.Error("error missing from StreamErrorMsg")
	}
}

// =============================================================================
// STREAM STATE TRANSITIONS
// =============================================================================

func streamingTestModel(t *testing.T) (Model, *model.Message) {
	m := newTestModel(t)
	m.conversation.AddUserMessage("hi")
	assistant := m.conversation.AddAssistantMessage()

	m.state = StateStreaming
	m.streamingMsgID = assistant.ID
	m.streamStats = model.NewStatistics()
	m.streamChunks = make(chan chat.StreamChunk)
	m.streamErrs = make(chan error, 1)
	return m, assistant
}

func TestStreamTokenAppendsContent(t *testing.T) {
	m, assistant := streamingTestModel(t)

	next, _ := m.handleStreamToken(StreamTokenMsg{MessageID: assistant.ID, Content: "Hello"})
	m = next.(Model)
	next, _ = m.handleStreamToken(StreamTokenMsg{MessageID: assistant.ID, Content: " world"})
	m = next.(Model)

	if got := assistant.GetDisplayContent(); got != "Hello world" {
		t.Errorf("content = %q", got)
	}
	if m.state != StateStreaming {
		t.Errorf("state = %v, want StateStreaming", m.state)
	}
}

func TestStreamTokenIgnoresStaleMessages(t *testing.T) {
	m, assistant := streamingTestModel(t)

	next, _ := m.handleStreamToken(StreamTokenMsg{MessageID: "msg_other", Content: "late"})
	m = next.(Model)

	if got := assistant.GetDisplayContent(); got != "" {
		t.Errorf("stale token should be dropped, content = %q", got)
	}
}

func TestStreamCompleteFinalizes(t *testing.T) {
	m, assistant := streamingTestModel(t)

	next, _ := m.handleStreamToken(StreamTokenMsg{MessageID: assistant.ID, Content: "done"})
	m = next.(Model)
	next, _ = m.handleStreamComplete(StreamCompleteMsg{MessageID: assistant.ID})
	m = next.(Model)

	if m.state != StateReady {
		t.Errorf("state = %v, want StateReady", m.state)
	}
	if assistant.IsStreaming {
		t.Error("message should be finalized")
	}
	if m.streamingMsgID != "" {
		t.Error("stream state should be cleared")
	}
}

func TestStreamErrorKeepsPartialContent(t *testing.T) {
	m, assistant := streamingTestModel(t)

	next, _ := m.handleStreamToken(StreamTokenMsg{MessageID: assistant.ID, Content: "partial"})
	m = next.(Model)
	next, _ = m.handleStreamError(StreamErrorMsg{MessageID: assistant.ID, Err: errors.New("boom")})
	m = next.(Model)

	if m.state != StateError {
		t.Errorf("state = %v, want StateError", m.state)
	}
	if m.lastError == nil {
		t.Fatal("expected error box")
	}
	if got := assistant.GetDisplayContent(); got != "partial" {
		t.Errorf("partial content lost: %q", got)
	}
}

// =============================================================================
// COMMAND MESSAGES
// =============================================================================

func TestSystemMessageAppendsNote(t *testing.T) {
	m := newTestModel(t)

	handled, next, _ := m.handleCommandMsg(commands.SystemMessageMsg{Content: "note"})
	if !handled {
		t.Fatal("SystemMessageMsg not handled")
	}
	m = next.(Model)

	last := m.conversation.GetLastMessage()
	if last == nil || last.Role != model.RoleSystem || last.Content != "note" {
		t.Errorf("last message = %+v", last)
	}
}

func TestErrorMessageBlocksInput(t *testing.T) {
	m := newTestModel(t)

	handled, next, _ := m.handleCommandMsg(commands.ErrorMsg{Title: "Bad", Message: "nope"})
	if !handled {
		t.Fatal("ErrorMsg not handled")
	}
	m = next.(Model)

	if m.state != StateError || m.lastError == nil {
		t.Errorf("state = %v, lastError = %v", m.state, m.lastError)
	}
}

func TestModelSwitchUpdatesContextAndConversation(t *testing.T) {
	m := newTestModel(t)

	handled, next, _ := m.handleCommandMsg(commands.ModelSwitchMsg{
		Model: "openai/gpt-4o-mini", Provider: "openai",
	})
	if !handled {
		t.Fatal("ModelSwitchMsg not handled")
	}
	m = next.(Model)

	if m.ctx.CurrentModel != "openai/gpt-4o-mini" {
		t.Errorf("CurrentModel = %q", m.ctx.CurrentModel)
	}
	if m.conversation.Model != "openai/gpt-4o-mini" {
		t.Errorf("conversation model = %q", m.conversation.Model)
	}
}

func TestNewConversationResets(t *testing.T) {
	m := newTestModel(t)
	m.conversation.AddUserMessage("old")
	oldID := m.conversation.ID

	_, next, _ := m.handleCommandMsg(commands.NewConversationMsg{})
	m = next.(Model)

	if m.conversation.ID == oldID {
		t.Error("expected a fresh conversation")
	}
	if !m.conversation.IsEmpty() {
		t.Error("new conversation should be empty")
	}
	if m.conversation.Model != m.ctx.CurrentModel {
		t.Errorf("new conversation model = %q", m.conversation.Model)
	}
}

func TestClearConversationKeepsIdentity(t *testing.T) {
	m := newTestModel(t)
	m.conversation.AddUserMessage("old")
	oldID := m.conversation.ID

	_, next, _ := m.handleCommandMsg(commands.ClearConversationMsg{})
	m = next.(Model)

	if m.conversation.ID != oldID {
		t.Error("clear should keep the conversation ID")
	}
	if !m.conversation.IsEmpty() {
		t.Error("history should be gone")
	}
}

func TestUnknownCommandShowsError(t *testing.T) {
	m := newTestModel(t)

	next, _ := m.executeCommand("/bogus")
	m = next.(Model)

	if m.state != StateError || m.lastError == nil {
		t.Fatalf("state = %v, lastError = %v", m.state, m.lastError)
	}
	if !strings.Contains(m.lastError.Message, "/bogus") {
		t.Errorf("error message = %q", m.lastError.Message)
	}
}

func TestCommandValidationFailureShowsError(t *testing.T) {
	m := newTestModel(t)

	// /theme requires an argument.
	next, _ := m.executeCommand("/theme")
	m = next.(Model)

	if m.state != StateError {
		t.Fatalf("state = %v, want StateError", m.state)
	}
}

func TestKnownCommandProducesCmd(t *testing.T) {
	m := newTestModel(t)

	_, cmd := m.executeCommand("/help")
	if cmd == nil {
		t.Fatal("expected a tea.Cmd from /help")
	}
	if _, ok := cmd().(commands.SystemMessageMsg); !ok {
		t.Error("help should emit a SystemMessageMsg")
	}
}

// =============================================================================
// SESSION LIST FORMATTING
// =============================================================================

func TestFormatSessionList(t *testing.T) {
	out := formatSessionList([]commands.SessionInfo{
		{ID: "conv_1", Title: "First chat", Preview: "hello there"},
		{ID: "conv_2", Title: "Second"},
	})
	for _, want := range []string{"conv_1", "First chat", "hello there", "conv_2", "/load"} {
		if !strings.Contains(out, want) {
			t.Errorf("session list missing %q:\n%s", want, out)
		}
	}

	empty := formatSessionList(nil)
	if !strings.Contains(empty, "/save") {
		t.Errorf("empty list should point at /save: %q", empty)
	}
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func TestEscDismissesError(t *testing.T) {
	m := newTestModel(t)
	m.state = StateError
	m.lastError = &commands.ErrorMsg{Title: "Bad"}

	next, _ := m.handleKey(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)

	if m.state != StateReady || m.lastError != nil {
		t.Errorf("state = %v, lastError = %v", m.state, m.lastError)
	}
}

func TestEnterOnEmptyInputDoesNothing(t *testing.T) {
	m := newTestModel(t)

	next, cmd := m.handleKey(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	if cmd != nil {
		t.Error("empty submit should be a no-op")
	}
	if !m.conversation.IsEmpty() {
		t.Error("no message should be added")
	}
}

func TestViewRendersWithoutMessages(t *testing.T) {
	m := newTestModel(t)

	out := m.View()
	if out == "" {
		t.Fatal("view rendered nothing")
	}
	if !strings.Contains(out, "relay") {
		t.Error("view missing brand")
	}
}
