package inference

import (
	"jan-server/services/dm-api/internal/config"
	httpclients "jan-server/services/dm-api/internal/utils/httpclients"
	chatclient "jan-server/services/dm-api/internal/utils/httpclients/chat"
)

// InferenceProvider builds the upstream clients from configuration.
type InferenceProvider struct {
	cfg *config.Config
}

func NewInferenceProvider(cfg *config.Config) *InferenceProvider {
	return &InferenceProvider{cfg: cfg}
}

// ChatCompletionClient returns a client bound to the Venice chat completions endpoint.
// The timeout is a wall clock ceiling on the whole streamed response.
func (ip *InferenceProvider) ChatCompletionClient() *chatclient.ChatCompletionClient {
	client := httpclients.NewClient("venice-chat", ip.cfg.UpstreamTimeout)
	return chatclient.NewChatCompletionClient(client, "venice-chat", ip.cfg.VeniceBaseURL, ip.cfg.VeniceAPIKey)
}

func (ip *InferenceProvider) ImageService() *VeniceImageService {
	client := httpclients.NewClient("venice-image", ip.cfg.ImageTimeout)
	return NewVeniceImageService(client, ip.cfg.VeniceBaseURL, ip.cfg.VeniceAPIKey, ImageOptions{
		Model:         ip.cfg.ImageModel,
		Width:         ip.cfg.ImageWidth,
		Height:        ip.cfg.ImageHeight,
		Format:        ip.cfg.ImageFormat,
		Steps:         ip.cfg.ImageSteps,
		SafeMode:      ip.cfg.ImageSafeMode,
		HideWatermark: ip.cfg.ImageHideWatermark,
	})
}
