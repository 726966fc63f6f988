// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessage(t *testing.T) {
	msg := NewUserMessage("hello")

	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want user", msg.Role)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q", msg.Content)
	}
	if !strings.HasPrefix(msg.ID, "msg_") {
		t.Errorf("ID = %q, want msg_ prefix", msg.ID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestStreamingLifecycle(t *testing.T) {
	msg := NewAssistantMessage()

	if !msg.IsStreaming {
		t.Fatal("new assistant message should be streaming")
	}

	msg.AppendToken("Hello")
	msg.AppendToken(", world")

	if got := msg.GetDisplayContent(); got != "Hello, world" {
		t.Errorf("streaming content = %q", got)
	}
	if msg.Content != "" {
		t.Error("Content should stay empty until finalized")
	}

	stats := NewStatistics()
	stats.RecordFirstToken()
	stats.Finalize(3)
	msg.FinalizeStream(stats)

	if msg.IsStreaming {
		t.Error("message should not be streaming after finalize")
	}
	if msg.Content != "Hello, world" {
		t.Errorf("Content = %q after finalize", msg.Content)
	}
	if msg.TokenCount != 3 {
		t.Errorf("TokenCount = %d, want 3", msg.TokenCount)
	}

	// Appending after finalize is a no-op.
	msg.AppendToken("!!!")
	if msg.GetDisplayContent() != "Hello, world" {
		t.Error("AppendToken after finalize should be ignored")
	}
}

func TestMessagePreview(t *testing.T) {
	short := NewUserMessage("short")
	if short.Preview(50) != "short" {
		t.Errorf("Preview = %q", short.Preview(50))
	}

	long := NewUserMessage(strings.Repeat("a", 100))
	got := long.Preview(10)
	if len([]rune(got)) != 10 {
		t.Errorf("Preview length = %d, want 10", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Preview = %q, want ... suffix", got)
	}

	// Unicode content must not be split mid-rune.
	uni := NewUserMessage(strings.Repeat("héllo wörld ", 20))
	_ = uni.Preview(15)
}

func TestRoleDisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAssistant, "Assistant"},
		{RoleSystem, "System"},
		{Role("other"), "other"},
	}
	for _, tt := range tests {
		if got := tt.role.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.role, got, tt.want)
		}
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversationAddMessages(t *testing.T) {
	conv := NewConversationWithModel("openai/gpt-4o")

	conv.AddUserMessage("What is Go?")
	asst := conv.AddAssistantMessage()

	if conv.MessageCount() != 2 {
		t.Fatalf("MessageCount = %d, want 2", conv.MessageCount())
	}
	if asst.Model != "openai/gpt-4o" {
		t.Errorf("assistant Model = %q", asst.Model)
	}
	if conv.GetLastMessage() != asst {
		t.Error("GetLastMessage should return the assistant message")
	}
	if conv.GetLastUserMessage().Content != "What is Go?" {
		t.Error("GetLastUserMessage mismatch")
	}
}

func TestConversationAutoTitle(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("Explain goroutines to me please")

	if conv.GetTitle() != "Explain goroutines to me please" {
		t.Errorf("auto title = %q", conv.GetTitle())
	}

	conv.SetTitle("custom")
	conv.AddUserMessage("another message")
	if conv.GetTitle() != "custom" {
		t.Error("manual title should not be overwritten")
	}
}

func TestConversationStreaming(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("hi")
	conv.AddAssistantMessage()

	conv.AppendToLast("he")
	conv.AppendToLast("llo")
	conv.FinalizeLast(nil)

	last := conv.GetLastAssistantMessage()
	if last.Content != "hello" {
		t.Errorf("finalized content = %q", last.Content)
	}
	if last.IsStreaming {
		t.Error("message still streaming after FinalizeLast")
	}
}

func TestToChatMessages(t *testing.T) {
	conv := NewConversation()
	conv.SystemPrompt = "be brief"
	conv.AddUserMessage("hi")
	asst := conv.AddAssistantMessage()
	asst.AppendToken("hello")
	asst.FinalizeStream(nil)
	conv.AddUserMessage("more")
	conv.AddAssistantMessage() // still streaming; must be skipped

	wire := conv.ToChatMessages()

	wantRoles := []string{"system", "user", "assistant", "user"}
	if len(wire) != len(wantRoles) {
		t.Fatalf("got %d wire messages, want %d", len(wire), len(wantRoles))
	}
	for i, want := range wantRoles {
		if wire[i].Role != want {
			t.Errorf("wire[%d].Role = %q, want %q", i, wire[i].Role, want)
		}
	}
	if wire[0].Content != "be brief" {
		t.Errorf("system content = %q", wire[0].Content)
	}
}

func TestConversationPruning(t *testing.T) {
	conv := NewConversation()
	conv.AddMessage(NewSystemMessage("keep me"))

	for i := 0; i < MaxMessages+10; i++ {
		conv.AddMessage(NewUserMessage("m"))
	}

	if got := conv.MessageCount(); got != MaxMessages+1 {
		t.Errorf("MessageCount after prune = %d, want %d", got, MaxMessages+1)
	}
	if conv.Messages[0].Role != RoleSystem {
		t.Error("system message should survive pruning")
	}
}

func TestConversationClone(t *testing.T) {
	conv := NewConversationWithModel("local/llama3")
	conv.AddUserMessage("original")

	clone := conv.Clone()
	clone.Messages[0].Content = "mutated"

	if conv.Messages[0].Content != "original" {
		t.Error("mutating the clone changed the original")
	}
	if clone.Model != conv.Model {
		t.Error("clone lost the model string")
	}
}

func TestConversationTokenTracking(t *testing.T) {
	conv := NewConversation()
	conv.SetMaxTokens(100)
	conv.AddUserMessage(strings.Repeat("x", 400)) // ~100 tokens

	if !conv.IsContextNearLimit() {
		t.Errorf("expected near-limit context, percent = %v", conv.ContextPercent)
	}
}
