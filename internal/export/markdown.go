// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/relay-tui/internal/model"
)

// MarkdownExporter renders a conversation as a Markdown document.
type MarkdownExporter struct {
	opts *Options
}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{opts: opts}
}

// FileExtension returns ".md".
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// Export renders the conversation. Streaming placeholder messages are
// skipped; they have no settled content yet.
func (e *MarkdownExporter) Export(conv *model.Conversation) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", conv.GetTitle())

	if e.opts.IncludeMetadata {
		b.WriteString("| | |\n|---|---|\n")
		if conv.Model != "" {
			fmt.Fprintf(&b, "| Model | %s |\n", conv.Model)
		}
		fmt.Fprintf(&b, "| Created | %s |\n", formatTimestamp(conv.CreatedAt))
		fmt.Fprintf(&b, "| Messages | %d |\n", conv.MessageCount())
		if conv.TokensUsed > 0 {
			fmt.Fprintf(&b, "| Tokens | ~%d |\n", conv.TokensUsed)
		}
		b.WriteString("\n")
	}

	if conv.SystemPrompt != "" {
		b.WriteString("## System\n\n")
		b.WriteString(conv.SystemPrompt)
		b.WriteString("\n\n")
	}

	for _, msg := range conv.Messages {
		if msg.IsStreaming || msg.Role == model.RoleSystem {
			continue
		}

		heading := msg.Role.DisplayName()
		if msg.Role == model.RoleAssistant && msg.Model != "" {
			heading += " (" + msg.Model + ")"
		}
		fmt.Fprintf(&b, "## %s\n\n", heading)

		if e.opts.IncludeTimestamps {
			fmt.Fprintf(&b, "*%s*", formatShortTimestamp(msg.Timestamp))
			if msg.Role == model.RoleAssistant && msg.TotalDuration > 0 {
				fmt.Fprintf(&b, " · %s", formatGenStats(msg))
			}
			b.WriteString("\n\n")
		}

		b.WriteString(strings.TrimRight(msg.Content, "\n"))
		b.WriteString("\n\n")
	}

	return []byte(b.String()), nil
}

// formatGenStats summarizes generation speed for an assistant message.
func formatGenStats(msg *model.Message) string {
	parts := []string{msg.TotalDuration.Round(10 * time.Millisecond).String()}
	if msg.TokensPerSec > 0 {
		parts = append(parts, fmt.Sprintf("%.1f tok/s", msg.TokensPerSec))
	}
	return strings.Join(parts, " · ")
}
