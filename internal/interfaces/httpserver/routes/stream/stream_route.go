package stream

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jan-server/services/dm-api/internal/domain/conversation"
	"jan-server/services/dm-api/internal/domain/session"
	"jan-server/services/dm-api/internal/interfaces/httpserver/handlers/gamehandler"
	"jan-server/services/dm-api/internal/interfaces/httpserver/handlers/streamhandler"
	"jan-server/services/dm-api/internal/interfaces/httpserver/middlewares"
	gamerequests "jan-server/services/dm-api/internal/interfaces/httpserver/requests/game"
	"jan-server/services/dm-api/internal/interfaces/httpserver/responses"
	gameresponses "jan-server/services/dm-api/internal/interfaces/httpserver/responses/game"
	"jan-server/services/dm-api/internal/utils/platformerrors"
)

// StreamRoute serves the Dungeon Master replies.
type StreamRoute struct {
	streamHandler *streamhandler.StreamHandler
	gameHandler   *gamehandler.GameHandler
}

func NewStreamRoute(streamHandler *streamhandler.StreamHandler, gameHandler *gamehandler.GameHandler) *StreamRoute {
	return &StreamRoute{
		streamHandler: streamHandler,
		gameHandler:   gameHandler,
	}
}

func (streamRoute *StreamRoute) RegisterRouter(router gin.IRouter) {
	router.GET("/stream", streamRoute.Stream)
	router.POST("/stream", streamRoute.Stream)
	router.POST("/chat/sync", streamRoute.PostChatSync)
}

// Stream
// @Summary Stream the Dungeon Master reply
// @Description Runs one turn and streams it as Server-Sent Events. Every event is `data: {json}`; the stream always ends with `event: done` and `data: [DONE]`.
// @Description
// @Description Errors after the stream has started are sent in-band as an event with `error: true` and a `failure` class.
// @Description In client storage mode the transcript is posted as `history` and nothing is stored.
// @Tags Stream API
// @Accept json
// @Produce text/event-stream
// @Param game_id query string false "Game id"
// @Param message_id query int false "Message id returned by /chat"
// @Param player_number query string false "Player number"
// @Param action_type query string false "joined or left"
// @Param request body gamerequests.StreamRequest false "Client storage mode payload"
// @Success 200 {string} string "SSE stream"
// @Failure 400 {object} responses.ErrorResponse
// @Router /stream [get]
// @Router /stream [post]
func (streamRoute *StreamRoute) Stream(reqCtx *gin.Context) {
	var request gamerequests.StreamRequest
	if err := reqCtx.ShouldBindQuery(&request); err != nil {
		responses.HandleBindError(reqCtx, err, "stream-invalid-query")
		return
	}
	if reqCtx.Request.Method == http.MethodPost {
		if err := gamerequests.BindOptionalJSON(reqCtx, &request); err != nil {
			responses.HandleBindError(reqCtx, err, "stream-invalid-body")
			return
		}
	}

	sess, ok := middlewares.GameSession(reqCtx, request.GameID)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeInternal, "session unavailable", "session-missing")
		return
	}
	sess.PlayerNumber = request.Number()
	sess = sess.WithAction(session.ParseAction(request.ActionType)).
		WithPlayerNames(session.ParsePlayerNames(request.PlayerNames))

	streamRoute.streamHandler.Stream(reqCtx, sess, request.History)
}

// PostChatSync
// @Summary Post a turn and wait for the reply
// @Description Records the player's message and returns the whole Dungeon Master reply in one JSON response. Images are generated before responding.
// @Tags Stream API
// @Accept json
// @Produce json
// @Param request body gamerequests.SyncChatRequest true "Player message"
// @Success 200 {object} gameresponses.SyncChatResponse
// @Failure 400 {object} responses.ErrorResponse
// @Failure 502 {object} responses.ErrorResponse
// @Failure 504 {object} responses.ErrorResponse
// @Router /chat/sync [post]
func (streamRoute *StreamRoute) PostChatSync(reqCtx *gin.Context) {
	var request gamerequests.SyncChatRequest
	if err := reqCtx.ShouldBindJSON(&request); err != nil {
		responses.HandleBindError(reqCtx, err, "chat-sync-invalid")
		return
	}
	sess, ok := middlewares.GameSession(reqCtx, request.GameID)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeInternal, "session unavailable", "session-missing")
		return
	}
	sess.PlayerNumber = request.PlayerNumber.Or(1)
	sess = sess.WithPlayerNames(session.ParsePlayerNames(request.PlayerNames))

	ctx := reqCtx.Request.Context()
	if _, err := streamRoute.gameHandler.PostMessage(ctx, sess, request.Message, request.IsSystem); err != nil {
		responses.HandleError(reqCtx, err, "Failed to record message")
		return
	}

	var history []conversation.Message
	if !sess.ServerStored() {
		latest := conversation.NewUserMessage(sess.PlayerNumber, request.Message)
		if request.IsSystem {
			latest = conversation.NewSystemNotice(request.Message)
		}
		history = append(request.History, latest)
	}
	out, err := streamRoute.streamHandler.Complete(ctx, sess, history)
	reqCtx.Set(middlewares.ModelKey, out.Model)
	if err != nil {
		responses.HandleError(reqCtx, err, "")
		return
	}
	reqCtx.JSON(http.StatusOK, gameresponses.NewSyncChatResponse(out))
}
