// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types used throughout the application
// for representing chat conversations and messages:
//
//   - Conversation: container for a chat session with messages and metadata
//   - Message: single message with role, content, timestamp, and statistics
//   - Role: message role enumeration (user, assistant, system)
//   - Statistics: generation timing and token counts
//
// Conversations carry a scoped model string ("provider/model-id"); resolving
// it to a provider happens in the provider package, not here.
package model
