package streamhandler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"jan-server/services/dm-api/internal/domain/conversation"
	"jan-server/services/dm-api/internal/domain/relay"
	"jan-server/services/dm-api/internal/domain/session"
	"jan-server/services/dm-api/internal/infrastructure/metrics"
	"jan-server/services/dm-api/internal/infrastructure/observability"
	"jan-server/services/dm-api/internal/interfaces/httpserver/middlewares"
	"jan-server/services/dm-api/internal/utils/platformerrors"
)

// maxClientHistory bounds the transcript a browser may send in client storage mode.
const maxClientHistory = 500

var historyValidator = validator.New(validator.WithRequiredStructEnabled())

// clientMessage is the part of a browser supplied message that must be well formed.
type clientMessage struct {
	Role    string `validate:"oneof=user assistant system"`
	Content string `validate:"max=32000"`
}

// StreamHandler runs DM turns for the stream and sync chat routes.
type StreamHandler struct {
	relays        relay.Relays
	conversations *conversation.ConversationService
	roster        *session.Roster
	log           zerolog.Logger
}

func NewStreamHandler(relays relay.Relays, conversations *conversation.ConversationService, roster *session.Roster, log zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		relays:        relays,
		conversations: conversations,
		roster:        roster,
		log:           log.With().Str("component", "stream-handler").Logger(),
	}
}

// Stream writes one turn as Server-Sent Events. Once the headers are out every
// failure is reported in-band, followed by the done event.
func (h *StreamHandler) Stream(reqCtx *gin.Context, sess session.Context, clientHistory []conversation.Message) {
	flusher, ok := middlewares.PrepareSSE(reqCtx)
	if !ok {
		reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}
	reqCtx.Status(http.StatusOK)
	flusher.Flush()

	ctx, span := observability.StartSpan(reqCtx.Request.Context(), "dm.turn")
	defer span.End()

	sink := &sseSink{ctx: ctx, writer: reqCtx.Writer, flusher: flusher}
	sess = h.withRoster(sess)

	history, err := h.history(ctx, sess, clientHistory)
	if err != nil {
		failure := relay.Classify(ctx, err)
		h.log.Error().Err(err).Str("game_id", sess.GameID).Msg("failed to load history for stream")
		_ = sink.Send(relay.NewErrorEvent(failure))
		_ = sink.Send(relay.NewDoneEvent())
		observability.RecordError(ctx, err)
		return
	}

	out := h.run(ctx, h.relays.Streaming, sess, history, sink)
	reqCtx.Set(middlewares.ModelKey, out.Model)
}

// Complete runs one turn without streaming and returns the outcome.
func (h *StreamHandler) Complete(ctx context.Context, sess session.Context, clientHistory []conversation.Message) (relay.Outcome, error) {
	ctx, span := observability.StartSpan(ctx, "dm.turn.sync")
	defer span.End()

	sess = h.withRoster(sess)
	history, err := h.history(ctx, sess, clientHistory)
	if err != nil {
		return relay.Outcome{}, err
	}
	out := h.run(ctx, h.relays.Buffered, sess, history, relay.SinkFunc(func(relay.StreamEvent) error {
		return nil
	}))
	if out.Failed() {
		return out, failureError(ctx, out.Failure)
	}
	return out, nil
}

func (h *StreamHandler) run(ctx context.Context, r *relay.Relay, sess session.Context, history []conversation.Message, sink relay.EventSink) relay.Outcome {
	metrics.IncrementActiveStreams(sess.ModelID)
	defer metrics.DecrementActiveStreams(sess.ModelID)

	out := r.Run(ctx, relay.Turn{Session: sess, History: history}, sink)

	metrics.RecordTurn(out.Model, string(out.Failure.Class), string(sess.StorageMode), out.Dropped, out.Duration.Seconds())
	for _, img := range out.Images {
		metrics.RecordImage(img.Succeeded(), img.Duration.Seconds())
	}
	observability.AddSpanAttributes(ctx,
		attribute.String("dm.model", out.Model),
		attribute.String("dm.failure", string(out.Failure.Class)),
		attribute.Int("dm.deltas", out.Deltas),
		attribute.Int("dm.images", len(out.Images)),
		attribute.Int("dm.dropped", out.Dropped),
		attribute.Bool("dm.persisted", out.Persisted),
	)
	if out.Failed() && out.Failure.Err != nil {
		observability.RecordError(ctx, out.Failure.Err)
	}
	return out
}

// history loads the server transcript, or sanitizes the one the browser sent.
func (h *StreamHandler) history(ctx context.Context, sess session.Context, clientHistory []conversation.Message) ([]conversation.Message, error) {
	if sess.ServerStored() {
		return h.conversations.Load(ctx, sess.Key())
	}
	return SanitizeClientHistory(clientHistory), nil
}

func (h *StreamHandler) withRoster(sess session.Context) session.Context {
	remembered := h.roster.Names(sess.UserID, sess.GameID)
	if len(remembered) == 0 {
		return sess
	}
	// names from this request win over remembered ones
	current := sess.PlayerNames
	sess.PlayerNames = remembered
	return sess.WithPlayerNames(current)
}

// SanitizeClientHistory keeps well formed entries of a browser supplied transcript.
func SanitizeClientHistory(messages []conversation.Message) []conversation.Message {
	if len(messages) > maxClientHistory {
		messages = messages[len(messages)-maxClientHistory:]
	}
	out := make([]conversation.Message, 0, len(messages))
	for _, msg := range messages {
		if err := historyValidator.Struct(clientMessage{Role: string(msg.Role), Content: msg.Content}); err != nil {
			continue
		}
		if strings.TrimSpace(msg.Content) == "" && !msg.IsDisplayOnly() {
			continue
		}
		out = append(out, msg)
	}
	return out
}

func failureError(ctx context.Context, failure relay.Failure) error {
	errorType := platformerrors.ErrorTypeInternal
	switch failure.Class {
	case relay.FailureTimeout:
		errorType = platformerrors.ErrorTypeTimeout
	case relay.FailureConnection:
		errorType = platformerrors.ErrorTypeUnavailable
	case relay.FailureTLS:
		errorType = platformerrors.ErrorTypeTLS
	case relay.FailureUpstreamStatus:
		errorType = platformerrors.ErrorTypeExternal
	case relay.FailureMalformed:
		errorType = platformerrors.ErrorTypeMalformed
	}
	return platformerrors.NewError(ctx, platformerrors.LayerHandler, errorType, failure.UserMessage(), failure.Err, "dm-turn-"+string(failure.Class))
}

// sseSink writes events to the response, failing once the client is gone.
type sseSink struct {
	ctx     context.Context
	writer  gin.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) Send(event relay.StreamEvent) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	payload, err := event.Encode()
	if err != nil {
		return err
	}
	if _, err := s.writer.Write(payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
