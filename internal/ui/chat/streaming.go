// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/relay-tui/internal/chat"
	"github.com/jeranaias/relay-tui/internal/commands"
	"github.com/jeranaias/relay-tui/internal/diag"
	"github.com/jeranaias/relay-tui/internal/model"
)

// streamTimeout bounds a single streamed response end to end.
const streamTimeout = 5 * time.Minute

// =============================================================================
// SENDING
// =============================================================================

// sendMessage appends a user turn and starts the streamed response.
func (m Model) sendMessage(content string) (tea.Model, tea.Cmd) {
	if m.ctx.Chat == nil || m.ctx.Providers == nil {
		m.lastError = &commands.ErrorMsg{
			Title:   "Not Connected",
			Message: "No chat client is configured.",
			Tip:     "Check providers.yaml and restart relay",
		}
		m.state = StateError
		return m, nil
	}

	rec, modelID, err := m.ctx.Providers.Resolve(m.ctx.CurrentModel)
	if err != nil {
		m.lastError = &commands.ErrorMsg{
			Title:   "No Model Selected",
			Message: fmt.Sprintf("Cannot resolve %q to a validated model.", m.ctx.CurrentModel),
			Tip:     "Run /discover, then pick a model with /model",
		}
		m.state = StateError
		return m, nil
	}

	m.conversation.AddUserMessage(content)
	assistant := m.conversation.AddAssistantMessage()
	m.updateViewport()

	ctx, cancel := context.WithTimeout(context.Background(), streamTimeout)
	chunks, errs := m.ctx.Chat.ChatStreamChan(ctx, rec, modelID, m.conversation.ToChatMessages())

	m.state = StateStreaming
	m.streamingMsgID = assistant.ID
	m.streamStats = model.NewStatistics()
	m.streamTokens = 0
	m.streamChunks = chunks
	m.streamErrs = errs
	m.cancelStream = cancel
	m.input.Blur()

	return m, tea.Batch(m.spinner.Tick, m.readStream())
}

// =============================================================================
// STREAM PUMP
// =============================================================================

// readStream returns a command that waits for the next chunk. Each delivered
// chunk re-queues the pump, so exactly one read is in flight at a time.
func (m *Model) readStream() tea.Cmd {
	chunks := m.streamChunks
	errs := m.streamErrs
	msgID := m.streamingMsgID

	return func() tea.Msg {
		chunk, ok := <-chunks
		if ok {
			return StreamTokenMsg{MessageID: msgID, Content: chunk.GetContent()}
		}
		// Chunk channel closed: the error channel is buffered and closed
		// too, so this read never blocks.
		if err := <-errs; err != nil {
			return StreamErrorMsg{MessageID: msgID, Err: err}
		}
		return StreamCompleteMsg{MessageID: msgID}
	}
}

// =============================================================================
// STREAM MESSAGE HANDLERS
// =============================================================================

func (m Model) handleStreamStart(msg StreamStartMsg) (tea.Model, tea.Cmd) {
	m.streamingMsgID = msg.MessageID
	return m, nil
}

func (m Model) handleStreamToken(msg StreamTokenMsg) (tea.Model, tea.Cmd) {
	if m.state != StateStreaming || msg.MessageID != m.streamingMsgID {
		// Late token from a cancelled stream.
		return m, nil
	}

	if msg.Content != "" {
		if m.streamTokens == 0 {
			m.streamStats.RecordFirstToken()
		}
		m.streamTokens++
		m.conversation.AppendToLast(msg.Content)
		m.updateViewport()
	}
	return m, m.readStream()
}

func (m Model) handleStreamComplete(msg StreamCompleteMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID {
		return m, nil
	}

	stats := m.streamStats
	if stats != nil {
		stats.Finalize(m.streamTokens)
	}
	m.conversation.FinalizeLast(stats)
	m.resetStream()
	m.updateViewport()
	return m, textinput.Blink
}

func (m Model) handleStreamError(msg StreamErrorMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID {
		return m, nil
	}

	diag.Logf("chat: stream failed: %v", msg.Err)

	// Keep whatever arrived before the failure.
	m.conversation.FinalizeLast(nil)
	m.resetStream()

	m.lastError = &commands.ErrorMsg{
		Title:   "Stream Failed",
		Message: msg.Err.Error(),
		Tip:     "Check your network and API key, then try again",
	}
	m.state = StateError
	m.updateViewport()
	return m, nil
}

// cancelStreaming aborts the in-flight response, keeping partial content.
func (m Model) cancelStreaming() (tea.Model, tea.Cmd) {
	if m.cancelStream != nil {
		m.cancelStream()
	}
	drainStream(m.streamChunks, m.streamErrs)
	m.conversation.FinalizeLast(nil)
	m.resetStream()
	m.addSystemNote("Response cancelled.")
	m.statusMsg = "cancelled"
	return m, textinput.Blink
}

// resetStream clears streaming state and returns the view to ready.
func (m *Model) resetStream() {
	if m.cancelStream != nil {
		m.cancelStream()
		m.cancelStream = nil
	}
	m.state = StateReady
	m.streamingMsgID = ""
	m.streamStats = nil
	m.streamTokens = 0
	m.streamChunks = nil
	m.streamErrs = nil
	m.input.Focus()
}

// drainStream discards remaining chunks from a cancelled stream so the
// producer goroutine can exit.
func drainStream(chunks <-chan chat.StreamChunk, errs <-chan error) {
	if chunks == nil {
		return
	}
	go func() {
		for range chunks {
		}
		<-errs
	}()
}
