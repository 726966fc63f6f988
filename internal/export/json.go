// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/relay-tui/internal/model"
)

// JSONExporter renders a conversation as indented JSON. The schema is
// stable and self-contained so the output can be re-imported or processed
// with jq without knowledge of relay internals.
type JSONExporter struct{}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// FileExtension returns ".json".
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

type jsonConversation struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Model        string        `json:"model,omitempty"`
	SystemPrompt string        `json:"system_prompt,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	TokensUsed   int           `json:"tokens_used,omitempty"`
	Messages     []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	Model        string    `json:"model,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	TokenCount   int       `json:"token_count,omitempty"`
	DurationMS   int64     `json:"duration_ms,omitempty"`
	TokensPerSec float64   `json:"tokens_per_sec,omitempty"`
}

// Export renders the conversation. Streaming placeholders are skipped.
func (e *JSONExporter) Export(conv *model.Conversation) ([]byte, error) {
	out := jsonConversation{
		ID:           conv.ID,
		Title:        conv.GetTitle(),
		Model:        conv.Model,
		SystemPrompt: conv.SystemPrompt,
		CreatedAt:    conv.CreatedAt,
		UpdatedAt:    conv.UpdatedAt,
		TokensUsed:   conv.TokensUsed,
		Messages:     make([]jsonMessage, 0, len(conv.Messages)),
	}

	for _, msg := range conv.Messages {
		if msg.IsStreaming {
			continue
		}
		out.Messages = append(out.Messages, jsonMessage{
			Role:         msg.Role.String(),
			Content:      msg.Content,
			Model:        msg.Model,
			Timestamp:    msg.Timestamp,
			TokenCount:   msg.TokenCount,
			DurationMS:   msg.TotalDuration.Milliseconds(),
			TokensPerSec: msg.TokensPerSec,
		})
	}

	return json.MarshalIndent(out, "", "  ")
}
