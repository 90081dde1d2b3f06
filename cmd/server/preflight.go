package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"jan-server/services/dm-api/internal/config"
	"jan-server/services/dm-api/internal/domain/model"
	"jan-server/services/dm-api/internal/infrastructure/inference"
)

// Preflight checks settings that only fail once a player starts a turn.
type Preflight struct {
	catalog           *model.Catalog
	inferenceProvider *inference.InferenceProvider
	cfg               *config.Config
	log               zerolog.Logger
}

func (p *Preflight) Check(ctx context.Context) error {
	if p.cfg.VeniceAPIKey == "" {
		p.log.Warn().Msg("VENICE_API_KEY is not set, upstream calls will be rejected")
	}
	if p.cfg.DefaultModel != "" && !p.catalog.Contains(p.cfg.DefaultModel) {
		return fmt.Errorf("DEFAULT_MODEL %q is not in the model catalog", p.cfg.DefaultModel)
	}

	models := make([]string, 0, len(p.catalog.List()))
	for _, m := range p.catalog.List() {
		models = append(models, m.ID)
	}
	p.log.Info().
		Str("upstream", p.inferenceProvider.ChatCompletionClient().BaseURL()).
		Str("default_model", p.catalog.Default().ID).
		Strs("models", models).
		Str("store_driver", p.cfg.StoreDriver).
		Msg("preflight complete")
	return ctx.Err()
}
