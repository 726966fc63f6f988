// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jeranaias/relay-tui/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndLoad(t *testing.T) {
	store := openTestStore(t)

	conv := model.NewConversationWithModel("openai/gpt-4o")
	conv.SystemPrompt = "be brief"
	conv.AddUserMessage("What is Go?")
	asst := conv.AddAssistantMessage()
	asst.AppendToken("A language.")
	asst.FinalizeStream(nil)

	if err := store.Save(conv); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(conv.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Model != "openai/gpt-4o" {
		t.Errorf("Model = %q", loaded.Model)
	}
	if loaded.SystemPrompt != "be brief" {
		t.Errorf("SystemPrompt = %q", loaded.SystemPrompt)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(loaded.Messages))
	}
	if loaded.Messages[0].Role != model.RoleUser {
		t.Errorf("first role = %q", loaded.Messages[0].Role)
	}
	if loaded.Messages[1].Content != "A language." {
		t.Errorf("assistant content = %q", loaded.Messages[1].Content)
	}
}

func TestSaveSkipsStreamingMessages(t *testing.T) {
	store := openTestStore(t)

	conv := model.NewConversation()
	conv.AddUserMessage("hi")
	conv.AddAssistantMessage() // still streaming

	if err := store.Save(conv); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(conv.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded.Messages) != 1 {
		t.Errorf("got %d messages, want 1 (streaming placeholder skipped)", len(loaded.Messages))
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	store := openTestStore(t)

	conv := model.NewConversation()
	conv.AddUserMessage("first")

	if err := store.Save(conv); err != nil {
		t.Fatal(err)
	}
	conv.AddUserMessage("second")
	if err := store.Save(conv); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Messages) != 2 {
		t.Errorf("got %d messages, want 2 (re-save must not duplicate)", len(loaded.Messages))
	}

	count, err := store.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

func TestLoadNotFound(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.Load("conv_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	store := openTestStore(t)

	for i := 0; i < 3; i++ {
		conv := model.NewConversation()
		conv.AddUserMessage(fmt.Sprintf("question %d", i))
		if err := store.Save(conv); err != nil {
			t.Fatal(err)
		}
	}

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(metas) != 3 {
		t.Fatalf("got %d conversations, want 3", len(metas))
	}
	for _, meta := range metas {
		if meta.MessageCount != 1 {
			t.Errorf("MessageCount = %d, want 1", meta.MessageCount)
		}
		if meta.Preview == "" {
			t.Error("Preview should not be empty")
		}
	}
}

func TestSearch(t *testing.T) {
	store := openTestStore(t)

	goConv := model.NewConversation()
	goConv.AddUserMessage("tell me about goroutines")
	if err := store.Save(goConv); err != nil {
		t.Fatal(err)
	}

	otherConv := model.NewConversation()
	otherConv.AddUserMessage("recipe for pancakes")
	if err := store.Save(otherConv); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search("GOROUTINE")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].ID != goConv.ID {
		t.Errorf("matched %q, want %q", results[0].ID, goConv.ID)
	}

	// Empty query lists everything.
	all, err := store.Search("  ")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("empty query returned %d, want 2", len(all))
	}
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)

	conv := model.NewConversation()
	conv.AddUserMessage("delete me")
	if err := store.Save(conv); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(conv.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(conv.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after delete = %v, want ErrNotFound", err)
	}
	if err := store.Delete(conv.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestEnforceLimit(t *testing.T) {
	store := openTestStore(t)
	store.MaxConversations = 5

	for i := 0; i < 8; i++ {
		conv := model.NewConversation()
		conv.AddUserMessage(fmt.Sprintf("conversation %d", i))
		if err := store.Save(conv); err != nil {
			t.Fatal(err)
		}
	}

	count, err := store.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Errorf("Count = %d, want 5 after pruning", count)
	}
}
