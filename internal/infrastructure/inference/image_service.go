package inference

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"resty.dev/v3"

	"jan-server/services/dm-api/internal/infrastructure/logger"
	"jan-server/services/dm-api/internal/utils/platformerrors"
)

// ImageGenerateRequest is the body of a Venice image generation call.
type ImageGenerateRequest struct {
	Model         string `json:"model"`
	Prompt        string `json:"prompt"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format,omitempty"`
	Steps         int    `json:"steps,omitempty"`
	SafeMode      bool   `json:"safe_mode"`
	HideWatermark bool   `json:"hide_watermark"`
	ReturnBinary  bool   `json:"return_binary"`
}

// ImageOptions are the fixed generation parameters applied to every prompt.
type ImageOptions struct {
	Model         string
	Width         int
	Height        int
	Format        string
	Steps         int
	SafeMode      bool
	HideWatermark bool
}

// ImageService generates one image per prompt and returns it as a data URI.
type ImageService interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VeniceImageService implements ImageService against POST {base}/image/generate.
type VeniceImageService struct {
	client  *resty.Client
	baseURL string
	apiKey  string
	opts    ImageOptions
	log     zerolog.Logger
}

func NewVeniceImageService(client *resty.Client, baseURL, apiKey string, opts ImageOptions) *VeniceImageService {
	if opts.Width <= 0 {
		opts.Width = 1024
	}
	if opts.Height <= 0 {
		opts.Height = 1024
	}
	return &VeniceImageService{
		client:  client,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		opts:    opts,
		log:     logger.Component("image-service"),
	}
}

// Generate implements ImageService.Generate.
func (s *VeniceImageService) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeValidation,
			"image prompt is empty", nil, "image-prompt-empty")
	}

	started := time.Now()
	s.log.Debug().
		Str("model", s.opts.Model).
		Str("prompt", truncatePrompt(prompt, 50)).
		Int("width", s.opts.Width).
		Int("height", s.opts.Height).
		Msg("generating image")

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", s.apiKey)).
		SetBody(s.buildProviderRequest(prompt)).
		Post(s.baseURL + "/image/generate")
	if err != nil {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			fmt.Sprintf("image provider call failed: %v", err), err, "image-provider-error")
	}

	respBytes := resp.Bytes()
	if resp.StatusCode() >= 400 {
		detail := gjson.GetBytes(respBytes, "error.message").String()
		if detail == "" {
			detail = gjson.GetBytes(respBytes, "error").String()
		}
		if detail == "" {
			detail = truncatePrompt(string(respBytes), 200)
		}
		return "", platformerrors.NewErrorWithContext(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			fmt.Sprintf("image provider returned status %d: %s", resp.StatusCode(), detail),
			nil, "image-provider-http-error", map[string]any{"status_code": resp.StatusCode()})
	}

	encoded, err := firstImage(respBytes)
	if err != nil {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeMalformed,
			"failed to parse image provider response", err, "image-parse-error")
	}

	dataURI, err := toDataURI(encoded)
	if err != nil {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeMalformed,
			"image provider returned undecodable data", err, "image-decode-error")
	}

	s.log.Debug().
		Dur("latency", time.Since(started)).
		Int("bytes", len(encoded)).
		Msg("image generated")
	return dataURI, nil
}

func (s *VeniceImageService) buildProviderRequest(prompt string) *ImageGenerateRequest {
	return &ImageGenerateRequest{
		Model:         s.opts.Model,
		Prompt:        prompt,
		Width:         s.opts.Width,
		Height:        s.opts.Height,
		Format:        s.opts.Format,
		Steps:         s.opts.Steps,
		SafeMode:      s.opts.SafeMode,
		HideWatermark: s.opts.HideWatermark,
		ReturnBinary:  false,
	}
}

// firstImage finds the first base64 image in any of the response shapes the provider uses:
// {"images": "..."}, {"images": ["...", ...]} or {"data": [{"b64_json": "..."}]}.
func firstImage(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("response is not JSON")
	}
	images := gjson.GetBytes(body, "images")
	switch {
	case images.IsArray() && len(images.Array()) > 0:
		return images.Array()[0].String(), nil
	case images.Type == gjson.String && images.String() != "":
		return images.String(), nil
	}
	if b64 := gjson.GetBytes(body, "data.0.b64_json"); b64.Exists() && b64.String() != "" {
		return b64.String(), nil
	}
	return "", fmt.Errorf("response contains no image")
}

// toDataURI decodes the payload, sniffs its mime type and re-wraps it as a data URI.
func toDataURI(encoded string) (string, error) {
	encoded = strings.TrimSpace(encoded)
	if _, after, found := strings.Cut(encoded, ";base64,"); found && strings.HasPrefix(encoded, "data:") {
		encoded = after
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty image")
	}
	mime := mimetype.Detect(raw)
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", fmt.Errorf("payload is %s, not an image", mime.String())
	}
	return "data:" + mime.String() + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}

// truncatePrompt truncates a prompt for logging purposes.
func truncatePrompt(prompt string, maxLen int) string {
	if len(prompt) <= maxLen {
		return prompt
	}
	return prompt[:maxLen] + "..."
}

// Ensure VeniceImageService implements ImageService.
var _ ImageService = (*VeniceImageService)(nil)
