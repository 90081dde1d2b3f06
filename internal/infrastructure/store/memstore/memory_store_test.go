package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/dm-api/internal/domain/conversation"
)

func TestMemoryStoreIsolatesCallers(t *testing.T) {
	store := New(0)
	ctx := context.Background()
	key := conversation.NewKey("u", "g")

	original := []conversation.Message{conversation.NewWelcomeMessage()}
	require.NoError(t, store.Save(ctx, key, original))
	original[0].Content = "mutated by caller"

	loaded, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, conversation.WelcomeMessage, loaded[0].Content)

	loaded[0].Content = "mutated after load"
	again, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, conversation.WelcomeMessage, again[0].Content)
}

func TestMemoryStoreDeleteAndPurge(t *testing.T) {
	store := New(time.Hour)
	ctx := context.Background()
	a := conversation.NewKey("u", "a")
	b := conversation.NewKey("u", "b")
	require.NoError(t, store.Save(ctx, a, nil))
	require.NoError(t, store.Save(ctx, b, nil))

	require.NoError(t, store.Delete(ctx, a))
	loaded, err := store.Load(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	removed, err := store.Purge(ctx, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = store.Purge(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
