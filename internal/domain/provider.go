package domain

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"jan-server/services/dm-api/internal/config"
	"jan-server/services/dm-api/internal/domain/completion"
	"jan-server/services/dm-api/internal/domain/contextwindow"
	"jan-server/services/dm-api/internal/domain/conversation"
	"jan-server/services/dm-api/internal/domain/directive"
	"jan-server/services/dm-api/internal/domain/model"
	"jan-server/services/dm-api/internal/domain/prompt"
	"jan-server/services/dm-api/internal/domain/relay"
	"jan-server/services/dm-api/internal/domain/session"
)

// ServiceProvider provides all domain services
var ServiceProvider = wire.NewSet(
	// Conversation domain
	conversation.NewConversationService,
	wire.Bind(new(relay.Recorder), new(*conversation.ConversationService)),

	// Model catalog
	ProvideModelCatalog,

	// Request building
	prompt.NewProcessor,
	wire.Bind(new(prompt.Processor), new(*prompt.ProcessorImpl)),
	ProvideTruncator,
	ProvideBuilderOptions,
	completion.NewBuilder,
	ProvideExtractor,

	// Relay
	relay.NewRelays,

	// Sessions
	ProvideRoster,
)

func ProvideModelCatalog(cfg *config.Config) (*model.Catalog, error) {
	return cfg.LoadModelCatalog()
}

func ProvideTruncator(cfg *config.Config, log zerolog.Logger) *contextwindow.Truncator {
	limits := contextwindow.DefaultLimits()
	if cfg.MaxHistorySize > 0 {
		limits.MaxMessages = cfg.MaxHistorySize
	}
	return contextwindow.NewTruncator(limits, log)
}

func ProvideBuilderOptions(cfg *config.Config) completion.Options {
	return completion.Options{
		MaxContextTokens:          cfg.MaxContextTokens,
		MinRecentMessages:         cfg.MinRecentMessages,
		IncludeVeniceSystemPrompt: cfg.IncludeVeniceSystemPrompt,
	}
}

func ProvideExtractor(cfg *config.Config) *directive.Extractor {
	return directive.NewExtractor(directive.Options{
		StylePrefix: cfg.ImageStylePrefix,
		MaxPrompts:  cfg.ImageMaxPrompts,
	})
}

func ProvideRoster() *session.Roster {
	return session.NewRoster(session.DefaultRosterTTL)
}
