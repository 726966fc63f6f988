// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/relay-tui/internal/model"
)

func TestLoadByIndex(t *testing.T) {
	store := openTestStore(t)

	older := model.NewConversation()
	older.AddUserMessage("older")
	older.UpdatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, store.Save(older))

	newer := model.NewConversation()
	newer.AddUserMessage("newer")
	require.NoError(t, store.Save(newer))

	// List orders by recency, so index 0 is the newest.
	first, err := store.LoadByIndex(0)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, first.ID)

	second, err := store.LoadByIndex(1)
	require.NoError(t, err)
	assert.Equal(t, older.ID, second.ID)

	_, err = store.LoadByIndex(2)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.LoadByIndex(-1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClear(t *testing.T) {
	store := openTestStore(t)

	for i := 0; i < 3; i++ {
		conv := model.NewConversation()
		conv.AddUserMessage("x")
		require.NoError(t, store.Save(conv))
	}

	require.NoError(t, store.Clear())

	count, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, count)

	metas, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, metas)
}
