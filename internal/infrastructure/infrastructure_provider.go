package infrastructure

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"jan-server/services/dm-api/internal/config"
	"jan-server/services/dm-api/internal/domain/conversation"
	"jan-server/services/dm-api/internal/domain/relay"
	"jan-server/services/dm-api/internal/infrastructure/crontab"
	"jan-server/services/dm-api/internal/infrastructure/inference"
	"jan-server/services/dm-api/internal/infrastructure/store"
	chatclient "jan-server/services/dm-api/internal/utils/httpclients/chat"
)

// ProvideConversationStore opens the configured conversation backend.
func ProvideConversationStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (conversation.Store, func(), error) {
	return store.NewConversationStore(ctx, cfg, log)
}

// ProvideChatClient provides the Venice chat completions client
func ProvideChatClient(provider *inference.InferenceProvider) *chatclient.ChatCompletionClient {
	return provider.ChatCompletionClient()
}

// ProvideImageGenerator provides the Venice image service
func ProvideImageGenerator(provider *inference.InferenceProvider) relay.ImageGenerator {
	return provider.ImageService()
}

// Infrastructure holds shared infrastructure dependencies
type Infrastructure struct {
	Logger      zerolog.Logger
	StoreDriver string
}

// NewInfrastructure creates a new infrastructure instance
func NewInfrastructure(cfg *config.Config, logger zerolog.Logger) *Infrastructure {
	return &Infrastructure{
		Logger:      logger,
		StoreDriver: cfg.StoreDriver,
	}
}

// InfrastructureProvider provides all infrastructure dependencies
var InfrastructureProvider = wire.NewSet(
	// Conversation storage
	ProvideConversationStore,

	// Upstream clients
	inference.NewInferenceProvider,
	ProvideChatClient,
	wire.Bind(new(relay.Client), new(*chatclient.ChatCompletionClient)),
	ProvideImageGenerator,

	// Retention sweep
	crontab.NewCrontab,
	wire.Bind(new(crontab.Purger), new(*conversation.ConversationService)),

	// Infrastructure struct
	NewInfrastructure,
)
