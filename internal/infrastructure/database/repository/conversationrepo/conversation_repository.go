package conversationrepo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jan-server/services/dm-api/internal/domain/conversation"
	"jan-server/services/dm-api/internal/infrastructure/database/dbschema"
	"jan-server/services/dm-api/internal/utils/platformerrors"
)

// ConversationGormRepository keeps transcripts in postgres, one row per game.
type ConversationGormRepository struct {
	db *gorm.DB
}

var _ conversation.Store = (*ConversationGormRepository)(nil)

func NewConversationGormRepository(db *gorm.DB) *ConversationGormRepository {
	return &ConversationGormRepository{db: db}
}

// Load implements conversation.Store.
func (repo *ConversationGormRepository) Load(ctx context.Context, key conversation.Key) ([]conversation.Message, error) {
	var row dbschema.Conversation
	err := repo.db.WithContext(ctx).
		Where("user_id = ? AND game_id = ?", key.UserID, key.GameID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []conversation.Message{}, nil
	}
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to load conversation", err, "conversation-load")
	}
	messages, err := row.EtoD()
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeMalformed,
			"stored conversation is corrupt", err, "conversation-decode")
	}
	return messages, nil
}

// Save implements conversation.Store.
func (repo *ConversationGormRepository) Save(ctx context.Context, key conversation.Key, messages []conversation.Message) error {
	row, err := dbschema.NewSchemaConversation(key, messages)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to encode conversation", err, "conversation-encode")
	}
	err = repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "game_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"messages", "updated_at"}),
		}).
		Create(row).Error
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to save conversation", err, "conversation-save")
	}
	return nil
}

// Delete implements conversation.Store.
func (repo *ConversationGormRepository) Delete(ctx context.Context, key conversation.Key) error {
	err := repo.db.WithContext(ctx).
		Where("user_id = ? AND game_id = ?", key.UserID, key.GameID).
		Delete(&dbschema.Conversation{}).Error
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to delete conversation", err, "conversation-delete")
	}
	return nil
}

// Purge implements conversation.Store.
func (repo *ConversationGormRepository) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	result := repo.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&dbschema.Conversation{})
	if result.Error != nil {
		return 0, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to purge conversations", result.Error, "conversation-purge")
	}
	return int(result.RowsAffected), nil
}
