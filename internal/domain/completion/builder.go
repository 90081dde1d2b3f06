package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/tidwall/sjson"

	"jan-server/services/dm-api/internal/domain/contextwindow"
	"jan-server/services/dm-api/internal/domain/conversation"
	"jan-server/services/dm-api/internal/domain/model"
	"jan-server/services/dm-api/internal/domain/prompt"
	"jan-server/services/dm-api/internal/domain/session"
	"jan-server/services/dm-api/internal/utils/platformerrors"
)

const (
	DefaultMaxContextTokens  = 45000
	DefaultMinRecentMessages = 6
)

// Options tunes request construction.
type Options struct {
	MaxContextTokens          int
	MinRecentMessages         int
	IncludeVeniceSystemPrompt bool
}

// Request is a fully prepared upstream chat completion call.
type Request struct {
	Model string
	// ModelSubstituted is set when the requested model was unknown and the default was used.
	ModelSubstituted  bool
	SystemPrompt      string
	Messages          []openai.ChatCompletionMessage
	Multiplayer       bool
	Dropped           int
	EstimatedTokens   int
	ParallelToolCalls bool
	VeniceParameters  map[string]any
}

// Encode renders the OpenAI-compatible body, adding the provider-specific fields.
func (r *Request) Encode(stream bool) ([]byte, error) {
	body, err := json.Marshal(openai.ChatCompletionRequest{
		Model:       r.Model,
		Messages:    r.Messages,
		Stream:      stream,
		Temperature: 1,
		TopP:        1,
		N:           1,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat completion request: %w", err)
	}

	for field, value := range map[string]any{
		"presence_penalty":  0,
		"frequency_penalty": 0,
	} {
		if body, err = sjson.SetBytes(body, field, value); err != nil {
			return nil, fmt.Errorf("set %s: %w", field, err)
		}
	}
	if r.ParallelToolCalls {
		if body, err = sjson.SetBytes(body, "parallel_tool_calls", true); err != nil {
			return nil, fmt.Errorf("set parallel_tool_calls: %w", err)
		}
	}
	for key, value := range r.VeniceParameters {
		if body, err = sjson.SetBytes(body, "venice_parameters."+key, value); err != nil {
			return nil, fmt.Errorf("set venice_parameters.%s: %w", key, err)
		}
	}
	return body, nil
}

// Builder turns a session and its history into an upstream request.
type Builder struct {
	catalog   *model.Catalog
	prompts   prompt.Processor
	truncator *contextwindow.Truncator
	opts      Options
	log       zerolog.Logger
}

func NewBuilder(catalog *model.Catalog, prompts prompt.Processor, truncator *contextwindow.Truncator, opts Options, log zerolog.Logger) *Builder {
	if opts.MaxContextTokens <= 0 {
		opts.MaxContextTokens = DefaultMaxContextTokens
	}
	if opts.MinRecentMessages < 0 {
		opts.MinRecentMessages = DefaultMinRecentMessages
	}
	return &Builder{
		catalog:   catalog,
		prompts:   prompts,
		truncator: truncator,
		opts:      opts,
		log:       log.With().Str("component", "completion-builder").Logger(),
	}
}

func (b *Builder) Build(ctx context.Context, sess session.Context, history []conversation.Message) (*Request, error) {
	sendable := make([]conversation.Message, 0, len(history))
	for _, msg := range history {
		if msg.IsDisplayOnly() {
			continue
		}
		sendable = append(sendable, msg)
	}

	multiplayer := conversation.DistinctPlayers(sendable) > 1

	systemPrompt, err := b.prompts.SystemPrompt(ctx, &prompt.Context{
		GameID:      sess.GameID,
		Multiplayer: multiplayer,
		Action:      sess.Action,
	})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to compose system prompt")
	}

	truncated := b.truncator.Truncate(sendable, systemPrompt, b.opts.MaxContextTokens, b.opts.MinRecentMessages)

	names := conversation.PlayerNames(history)
	for n, name := range sess.PlayerNames {
		if name = strings.TrimSpace(name); name != "" {
			names[n] = name
		}
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(truncated.Messages)+1)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	for _, msg := range truncated.Messages {
		messages = append(messages, toUpstream(msg, multiplayer, names))
	}

	selected, known := b.catalog.Resolve(sess.ModelID)
	if !known && sess.ModelID != "" {
		b.log.Warn().
			Str("requested_model", sess.ModelID).
			Str("model", selected.ID).
			Msg("unknown model requested, using default")
	}

	req := &Request{
		Model:             selected.ID,
		ModelSubstituted:  !known && sess.ModelID != "",
		SystemPrompt:      systemPrompt,
		Messages:          messages,
		Multiplayer:       multiplayer,
		Dropped:           truncated.Dropped,
		EstimatedTokens:   truncated.EstimatedTokens,
		ParallelToolCalls: selected.SupportsParallelToolCalls,
		VeniceParameters: map[string]any{
			"include_venice_system_prompt": b.opts.IncludeVeniceSystemPrompt,
		},
	}

	b.log.Debug().
		Str("game_id", sess.GameID).
		Str("model", req.Model).
		Bool("multiplayer", multiplayer).
		Int("history", len(history)).
		Int("sent", len(truncated.Messages)).
		Int("dropped", truncated.Dropped).
		Int("estimated_tokens", truncated.EstimatedTokens).
		Msg("built completion request")

	return req, nil
}

func toUpstream(msg conversation.Message, multiplayer bool, names map[int]string) openai.ChatCompletionMessage {
	switch {
	case msg.IsNotice():
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: msg.Content}
	case msg.Role == conversation.RoleUser:
		content := msg.Content
		if multiplayer {
			content = speakerName(msg.PlayerOrDefault(), names) + ": " + content
		}
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: content}
	default:
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: msg.Content}
	}
}

func speakerName(playerID string, names map[int]string) string {
	n, ok := conversation.PlayerNumber(playerID)
	if !ok {
		return playerID
	}
	if name, found := names[n]; found {
		return name
	}
	return fmt.Sprintf("Player %d", n)
}
