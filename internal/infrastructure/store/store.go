package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"jan-server/services/dm-api/internal/config"
	"jan-server/services/dm-api/internal/domain/conversation"
	"jan-server/services/dm-api/internal/infrastructure/database"
	"jan-server/services/dm-api/internal/infrastructure/database/repository/conversationrepo"
	"jan-server/services/dm-api/internal/infrastructure/store/filestore"
	"jan-server/services/dm-api/internal/infrastructure/store/memstore"
	"jan-server/services/dm-api/internal/infrastructure/store/redisstore"
)

// NewConversationStore opens the backend selected by STORE_DRIVER.
// The returned cleanup releases its connections.
func NewConversationStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (conversation.Store, func(), error) {
	log = log.With().Str("store_driver", cfg.StoreDriver).Logger()
	noop := func() {}

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn().Msg("using in-memory conversation store, transcripts are lost on restart")
		return memstore.New(cfg.ConversationRetention), noop, nil

	case config.StoreDriverRedis:
		s, err := redisstore.New(ctx, cfg.RedisURL, cfg.ConversationRetention, log)
		if err != nil {
			return nil, noop, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				log.Error().Err(err).Msg("close redis store")
			}
		}, nil

	case config.StoreDriverPostgres:
		db, err := database.Connect(database.Config{
			DatabaseURL: cfg.DatabaseURL,
			MaxIdle:     cfg.DBMaxIdleConns,
			MaxOpen:     cfg.DBMaxOpenConns,
			MaxLifetime: cfg.DBConnLifetime,
			LogLevel:    gormlogger.Warn,
		})
		if err != nil {
			return nil, noop, err
		}
		repo := conversationrepo.NewConversationGormRepository(db)
		if cfg.AutoMigrate {
			if err := database.AutoMigrate(ctx, db); err != nil {
				database.Close(db)
				return nil, noop, err
			}
		}
		return repo, func() {
			if err := database.Close(db); err != nil {
				log.Error().Err(err).Msg("close database")
			}
		}, nil

	case config.StoreDriverFile, "":
		s, err := filestore.New(cfg.ChatHistoryDir, log)
		if err != nil {
			return nil, noop, err
		}
		log.Info().Str("dir", cfg.ChatHistoryDir).Msg("using file conversation store")
		return s, noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
