// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/relay-tui/internal/model"
	"github.com/jeranaias/relay-tui/internal/provider"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamStartMsg begins a streaming response.
type StreamStartMsg struct {
	MessageID string
}

// StreamTokenMsg carries one streamed content delta.
type StreamTokenMsg struct {
	MessageID string
	Content   string
}

// StreamCompleteMsg ends a streaming response.
type StreamCompleteMsg struct {
	MessageID string
	Stats     *model.Statistics
}

// StreamErrorMsg reports a streaming failure. Partial content already
// appended to the conversation stays visible.
type StreamErrorMsg struct {
	MessageID string
	Err       error
}

// ErrorDismissMsg dismisses the blocking error box.
type ErrorDismissMsg struct{}

// ProvidersReloadedMsg carries freshly parsed provider configs after the
// store file changed on disk. Applied on the UI thread so nothing races the
// registry.
type ProvidersReloadedMsg struct {
	Configs []provider.PersistedProviderConfig
}
