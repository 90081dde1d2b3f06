package dbschema

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"jan-server/services/dm-api/internal/domain/conversation"
	"jan-server/services/dm-api/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Conversation{})
}

// Conversation stores one game transcript as a single JSON document.
type Conversation struct {
	UserID    string         `gorm:"type:varchar(64);primaryKey"`
	GameID    string         `gorm:"type:varchar(64);primaryKey"`
	Messages  datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index:idx_conversations_updated_at"`
}

func NewSchemaConversation(key conversation.Key, messages []conversation.Message) (*Conversation, error) {
	if messages == nil {
		messages = []conversation.Message{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return nil, err
	}
	return &Conversation{
		UserID:   key.UserID,
		GameID:   key.GameID,
		Messages: datatypes.JSON(raw),
	}, nil
}

// EtoD decodes the stored transcript.
func (c *Conversation) EtoD() ([]conversation.Message, error) {
	messages := []conversation.Message{}
	if len(c.Messages) == 0 {
		return messages, nil
	}
	if err := json.Unmarshal(c.Messages, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
