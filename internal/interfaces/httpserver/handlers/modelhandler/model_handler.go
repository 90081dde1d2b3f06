package modelhandler

import (
	"github.com/rs/zerolog"

	"jan-server/services/dm-api/internal/domain/model"
	gameresponses "jan-server/services/dm-api/internal/interfaces/httpserver/responses/game"
)

// ModelHandler exposes the model catalog to the settings routes.
type ModelHandler struct {
	catalog *model.Catalog
	log     zerolog.Logger
}

func NewModelHandler(catalog *model.Catalog, log zerolog.Logger) *ModelHandler {
	return &ModelHandler{catalog: catalog, log: log.With().Str("component", "model-handler").Logger()}
}

// List returns the catalog with the caller's current selection flagged.
func (h *ModelHandler) List(selected string) gameresponses.ModelListResponse {
	return gameresponses.NewModelListResponse(h.catalog, selected)
}

// Select resolves a requested model. Unknown ids fall back to the default and
// report fallback so the browser can correct its picker.
func (h *ModelHandler) Select(requested string) gameresponses.SetModelResponse {
	resolved, ok := h.catalog.Resolve(requested)
	if !ok {
		h.log.Warn().Str("requested", requested).Str("model_id", resolved.ID).Msg("unknown model requested, using default")
	}
	return gameresponses.SetModelResponse{Success: true, ModelID: resolved.ID, Fallback: !ok}
}
