package conversationrepo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"jan-server/services/dm-api/internal/domain/conversation"
	"jan-server/services/dm-api/internal/infrastructure/database/dbschema"
	"jan-server/services/dm-api/internal/utils/platformerrors"
)

func newTestRepository(t *testing.T) (*ConversationGormRepository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "dm.db")), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&dbschema.Conversation{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewConversationGormRepository(db), db
}

func TestConversationRepositoryUpsertsOneRowPerGame(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()
	key := conversation.NewKey("u", "g")

	loaded, err := repo.Load(ctx, key)
	require.NoError(t, err)
	assert.NotNil(t, loaded)
	assert.Empty(t, loaded)

	first := []conversation.Message{conversation.NewWelcomeMessage()}
	require.NoError(t, repo.Save(ctx, key, first))

	second := append(first, conversation.NewUserMessage(2, "I draw my sword"))
	require.NoError(t, repo.Save(ctx, key, second))

	loaded, err = repo.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, second, loaded)

	var rows int64
	require.NoError(t, db.Model(&dbschema.Conversation{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	require.NoError(t, repo.Delete(ctx, key))
	loaded, err = repo.Load(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestConversationRepositoryPurge(t *testing.T) {
	repo, db := newTestRepository(t)
	ctx := context.Background()
	stale := conversation.NewKey("u", "stale")
	fresh := conversation.NewKey("u", "fresh")
	require.NoError(t, repo.Save(ctx, stale, nil))
	require.NoError(t, repo.Save(ctx, fresh, nil))

	old := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, db.Exec("UPDATE conversations SET updated_at = ? WHERE game_id = ?", old, stale.GameID).Error)

	removed, err := repo.Purge(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	var remaining []dbschema.Conversation
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, fresh.GameID, remaining[0].GameID)
}

func TestConversationRepositoryCorruptRow(t *testing.T) {
	repo, db := newTestRepository(t)
	key := conversation.NewKey("u", "g")
	require.NoError(t, db.Create(&dbschema.Conversation{UserID: key.UserID, GameID: key.GameID, Messages: []byte("{not json")}).Error)

	_, err := repo.Load(context.Background(), key)
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeMalformed))
}
