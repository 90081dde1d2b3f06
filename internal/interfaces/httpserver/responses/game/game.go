package gameresponses

import (
	"jan-server/services/dm-api/internal/domain/conversation"
	"jan-server/services/dm-api/internal/domain/model"
	"jan-server/services/dm-api/internal/domain/relay"
)

type NewGameResponse struct {
	Success bool   `json:"success"`
	GameID  string `json:"game_id"`
}

type HistoryResponse struct {
	GameID  string                 `json:"game_id"`
	History []conversation.Message `json:"history"`
}

type ChatResponse struct {
	MessageID    int  `json:"message_id"`
	Streaming    bool `json:"streaming"`
	PlayerNumber int  `json:"player_number"`
}

// SyncChatResponse is the whole DM reply of a non-streaming turn.
type SyncChatResponse struct {
	Response string         `json:"response"`
	Images   []ImageOutcome `json:"images,omitempty"`
	Model    string         `json:"model"`
}

type ImageOutcome struct {
	Prompt   string `json:"prompt"`
	ImageURL string `json:"image_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// StatusResponse is the {success, message} envelope the browser client checks.
type StatusResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
	PlayerNumber int    `json:"player_number,omitempty"`
}

type RenameResponse struct {
	Success bool `json:"success"`
	Renamed int  `json:"renamed"`
}

type UpdatesResponse struct {
	Success      bool                   `json:"success"`
	HasUpdates   bool                   `json:"has_updates"`
	Updates      []conversation.Message `json:"updates"`
	MessageCount int                    `json:"message_count"`
}

type ModelResponse struct {
	ID                        string   `json:"id"`
	Name                      string   `json:"name"`
	Traits                    []string `json:"traits,omitempty"`
	SupportsParallelToolCalls bool     `json:"supports_parallel_tool_calls"`
	Default                   bool     `json:"default"`
	Selected                  bool     `json:"selected"`
}

type ModelListResponse struct {
	Models   []ModelResponse `json:"models"`
	Default  string          `json:"default"`
	Selected string          `json:"selected"`
}

type SetModelResponse struct {
	Success  bool   `json:"success"`
	ModelID  string `json:"model_id"`
	Fallback bool   `json:"fallback"`
}

type StorageModeResponse struct {
	Success     bool   `json:"success"`
	StorageMode string `json:"storage_mode"`
}

func NewSyncChatResponse(out relay.Outcome) SyncChatResponse {
	resp := SyncChatResponse{Response: out.Reply, Model: out.Model}
	for _, img := range out.Images {
		outcome := ImageOutcome{Prompt: img.Prompt}
		if img.Succeeded() {
			outcome.ImageURL = img.ImageURL
		} else if img.Err != nil {
			outcome.Error = "image generation failed"
		}
		resp.Images = append(resp.Images, outcome)
	}
	return resp
}

func NewModelListResponse(catalog *model.Catalog, selected string) ModelListResponse {
	def := catalog.Default()
	if resolved, ok := catalog.Resolve(selected); ok {
		selected = resolved.ID
	} else {
		selected = def.ID
	}
	resp := ModelListResponse{Default: def.ID, Selected: selected}
	for _, m := range catalog.List() {
		resp.Models = append(resp.Models, ModelResponse{
			ID:                        m.ID,
			Name:                      m.Name,
			Traits:                    m.Traits,
			SupportsParallelToolCalls: m.SupportsParallelToolCalls,
			Default:                   m.ID == def.ID,
			Selected:                  m.ID == selected,
		})
	}
	return resp
}
