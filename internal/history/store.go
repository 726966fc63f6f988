// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/relay-tui/internal/model"
)

// DatabaseFileName is the history database file under the data directory.
const DatabaseFileName = "history.db"

// DefaultMaxConversations caps stored conversations; the oldest are pruned
// past this limit. Zero disables pruning.
const DefaultMaxConversations = 100

// ErrNotFound is returned when a conversation does not exist.
var ErrNotFound = errors.New("conversation not found")

// =============================================================================
// STORE
// =============================================================================

// Store persists conversations in SQLite.
type Store struct {
	db *sql.DB

	// MaxConversations limits stored conversations (0 = unlimited).
	MaxConversations int
}

// Open opens (or creates) the history database under dataDir.
func Open(dataDir string) (*Store, error) {
	return OpenPath(filepath.Join(dataDir, DatabaseFileName))
}

// OpenPath opens a history store at a specific database path.
func OpenPath(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &Store{
		db:               db,
		MaxConversations: DefaultMaxConversations,
	}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// SAVE
// =============================================================================

// Save persists a conversation, replacing any previous version. Streaming
// placeholder messages are skipped.
func (s *Store) Save(conv *model.Conversation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO conversations (id, title, model, system_prompt, tokens_used, max_tokens, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			model = excluded.model,
			system_prompt = excluded.system_prompt,
			tokens_used = excluded.tokens_used,
			max_tokens = excluded.max_tokens,
			updated_at = excluded.updated_at`,
		conv.ID, conv.GetTitle(), conv.Model, conv.SystemPrompt,
		conv.TokensUsed, conv.MaxTokens,
		conv.CreatedAt.Unix(), conv.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}

	// Rewrite messages wholesale; per-message diffing is not worth the
	// complexity at interactive conversation sizes.
	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conv.ID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO messages (id, conversation_id, position, role, content, model, token_count, ttft_ns, total_duration_ns, tokens_per_sec, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	position := 0
	for _, msg := range conv.Messages {
		if msg.IsStreaming {
			continue
		}
		_, err := stmt.Exec(
			msg.ID, conv.ID, position, msg.Role.String(), msg.Content, msg.Model,
			msg.TokenCount, int64(msg.TTFT), int64(msg.TotalDuration), msg.TokensPerSec,
			msg.Timestamp.Unix())
		if err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
		position++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	if s.MaxConversations > 0 {
		s.enforceLimit()
	}
	return nil
}

// enforceLimit prunes the oldest conversations past MaxConversations.
func (s *Store) enforceLimit() {
	s.db.Exec(`
		DELETE FROM conversations WHERE id IN (
			SELECT id FROM conversations
			ORDER BY updated_at DESC
			LIMIT -1 OFFSET ?
		)`, s.MaxConversations)
}

// =============================================================================
// LOAD
// =============================================================================

// Load retrieves a conversation by ID.
func (s *Store) Load(id string) (*model.Conversation, error) {
	conv := &model.Conversation{}
	var systemPrompt sql.NullString
	var createdAt, updatedAt int64

	err := s.db.QueryRow(`
		SELECT id, title, model, system_prompt, tokens_used, max_tokens, created_at, updated_at
		FROM conversations WHERE id = ?`, id).
		Scan(&conv.ID, &conv.Title, &conv.Model, &systemPrompt,
			&conv.TokensUsed, &conv.MaxTokens, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	conv.SystemPrompt = systemPrompt.String
	conv.CreatedAt = time.Unix(createdAt, 0)
	conv.UpdatedAt = time.Unix(updatedAt, 0)

	rows, err := s.db.Query(`
		SELECT id, role, content, model, token_count, ttft_ns, total_duration_ns, tokens_per_sec, created_at
		FROM messages WHERE conversation_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		msg := &model.Message{}
		var role string
		var msgModel sql.NullString
		var ttft, totalDuration, timestamp int64

		err := rows.Scan(&msg.ID, &role, &msg.Content, &msgModel,
			&msg.TokenCount, &ttft, &totalDuration, &msg.TokensPerSec, &timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg.Role = model.Role(role)
		msg.Model = msgModel.String
		msg.TTFT = time.Duration(ttft)
		msg.TotalDuration = time.Duration(totalDuration)
		msg.Timestamp = time.Unix(timestamp, 0)
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return conv, nil
}

// LoadByIndex loads a conversation by its position in the listing
// (0 = most recently updated).
func (s *Store) LoadByIndex(index int) (*model.Conversation, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(metas) {
		return nil, ErrNotFound
	}
	return s.Load(metas[index].ID)
}

// =============================================================================
// LIST / SEARCH
// =============================================================================

// List returns metadata for all conversations, most recently updated first.
func (s *Store) List() ([]model.ConversationMeta, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.title, c.model, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id),
		       COALESCE((SELECT m.content FROM messages m
		                 WHERE m.conversation_id = c.id AND m.role = 'user'
		                 ORDER BY m.position LIMIT 1), '')
		FROM conversations c
		ORDER BY c.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var metas []model.ConversationMeta
	for rows.Next() {
		var meta model.ConversationMeta
		var createdAt, updatedAt int64
		var preview string

		err := rows.Scan(&meta.ID, &meta.Title, &meta.Model,
			&createdAt, &updatedAt, &meta.MessageCount, &preview)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}

		meta.CreatedAt = time.Unix(createdAt, 0)
		meta.UpdatedAt = time.Unix(updatedAt, 0)
		meta.Preview = truncatePreview(preview, 80)
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// Search finds conversations whose title or message content matches the
// query, case-insensitive.
func (s *Store) Search(query string) ([]model.ConversationMeta, error) {
	if strings.TrimSpace(query) == "" {
		return s.List()
	}

	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := s.db.Query(`
		SELECT DISTINCT c.id FROM conversations c
		LEFT JOIN messages m ON m.conversation_id = c.id
		WHERE lower(c.title) LIKE ? OR lower(m.content) LIKE ?
		ORDER BY c.updated_at DESC`, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search conversations: %w", err)
	}
	defer rows.Close()

	matched := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		matched[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	all, err := s.List()
	if err != nil {
		return nil, err
	}

	var results []model.ConversationMeta
	for _, meta := range all {
		if matched[meta.ID] {
			results = append(results, meta)
		}
	}
	return results, nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a conversation by ID.
func (s *Store) Delete(id string) error {
	result, err := s.db.Exec(`DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes all conversations.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM conversations`)
	return err
}

// Count returns the number of stored conversations.
func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM conversations`).Scan(&count)
	return count, err
}

// =============================================================================
// HELPERS
// =============================================================================

// truncatePreview truncates a preview string rune-safely and strips newlines.
func truncatePreview(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
