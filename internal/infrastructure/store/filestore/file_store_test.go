package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/dm-api/internal/domain/conversation"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := New(dir, zerolog.Nop())
	require.NoError(t, err)
	return store, dir
}

func TestFileStoreLifecycle(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()
	key := conversation.NewKey("user-1", "game-1")

	empty, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	messages := []conversation.Message{
		conversation.NewWelcomeMessage(),
		conversation.NewUserMessage(2, "I draw my sword"),
	}
	require.NoError(t, store.Save(ctx, key, messages))
	assert.FileExists(t, filepath.Join(dir, "user-1", "game-1.json"))

	loaded, err := store.Load(ctx, key)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "player2", loaded[1].Player)

	require.NoError(t, store.Delete(ctx, key))
	require.NoError(t, store.Delete(ctx, key), "deleting twice is fine")
	loaded, err = store.Load(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	store, dir := newTestStore(t)
	key := conversation.NewKey("u", "g")
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Save(context.Background(), key, []conversation.Message{conversation.NewWelcomeMessage()}))
	}

	entries, err := os.ReadDir(filepath.Join(dir, "u"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "g.json", entries[0].Name())
}

func TestFileStoreCorruptFile(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "u"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "u", "g.json"), []byte("{not json"), 0o644))

	_, err := store.Load(context.Background(), conversation.NewKey("u", "g"))
	require.Error(t, err)
}

func TestFileStorePurge(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()
	stale := conversation.NewKey("u", "old")
	fresh := conversation.NewKey("u", "new")
	require.NoError(t, store.Save(ctx, stale, nil))
	require.NoError(t, store.Save(ctx, fresh, nil))

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "u", "old.json"), past, past))

	removed, err := store.Purge(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, filepath.Join(dir, "u", "old.json"))
	assert.FileExists(t, filepath.Join(dir, "u", "new.json"))
}
