package game

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"jan-server/services/dm-api/internal/domain/conversation"
	"jan-server/services/dm-api/internal/domain/session"
	"jan-server/services/dm-api/internal/interfaces/httpserver/handlers/gamehandler"
	"jan-server/services/dm-api/internal/interfaces/httpserver/middlewares"
	gamerequests "jan-server/services/dm-api/internal/interfaces/httpserver/requests/game"
	"jan-server/services/dm-api/internal/interfaces/httpserver/responses"
	gameresponses "jan-server/services/dm-api/internal/interfaces/httpserver/responses/game"
	"jan-server/services/dm-api/internal/utils/platformerrors"
)

// GameRoute serves the transcript endpoints the browser client polls and posts to.
type GameRoute struct {
	gameHandler *gamehandler.GameHandler
}

func NewGameRoute(gameHandler *gamehandler.GameHandler) *GameRoute {
	return &GameRoute{gameHandler: gameHandler}
}

func (gameRoute *GameRoute) RegisterRouter(router gin.IRouter) {
	router.POST("/new_game", gameRoute.PostNewGame)
	router.POST("/load_history", gameRoute.PostLoadHistory)
	router.POST("/chat", gameRoute.PostChat)
	router.POST("/add_player", gameRoute.PostAddPlayer)
	router.POST("/remove_player", gameRoute.PostRemovePlayer)
	router.POST("/rename_player", gameRoute.PostRenamePlayer)
	router.POST("/get_updates", gameRoute.PostGetUpdates)
	router.POST("/clear", gameRoute.PostClear)
}

// PostNewGame
// @Summary Start a new game
// @Description Creates a game with a fresh id, seeded with the Dungeon Master's welcome message.
// @Tags Game API
// @Produce json
// @Success 200 {object} gameresponses.NewGameResponse
// @Failure 500 {object} responses.ErrorResponse
// @Router /new_game [post]
func (gameRoute *GameRoute) PostNewGame(reqCtx *gin.Context) {
	sess, ok := middlewares.SessionFromContext(reqCtx)
	if !ok {
		missingSession(reqCtx)
		return
	}
	gameID, err := gameRoute.gameHandler.NewGame(reqCtx.Request.Context(), sess)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to create game")
		return
	}
	reqCtx.Set(middlewares.GameIDKey, gameID)
	reqCtx.JSON(http.StatusOK, gameresponses.NewGameResponse{Success: true, GameID: gameID})
}

// PostLoadHistory
// @Summary Load a game transcript
// @Description Returns the visible messages of a game. An empty game is seeded with the welcome message.
// @Tags Game API
// @Accept json
// @Produce json
// @Param request body gamerequests.GameRequest false "Game to load"
// @Success 200 {object} gameresponses.HistoryResponse
// @Failure 400 {object} responses.ErrorResponse
// @Failure 500 {object} responses.ErrorResponse
// @Router /load_history [post]
func (gameRoute *GameRoute) PostLoadHistory(reqCtx *gin.Context) {
	var request gamerequests.GameRequest
	if err := gamerequests.BindOptionalJSON(reqCtx, &request); err != nil {
		responses.HandleBindError(reqCtx, err, "load-history-invalid")
		return
	}
	sess, ok := middlewares.GameSession(reqCtx, request.GameID)
	if !ok {
		missingSession(reqCtx)
		return
	}
	history, err := gameRoute.gameHandler.History(reqCtx.Request.Context(), sess)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to load history")
		return
	}
	reqCtx.JSON(http.StatusOK, gameresponses.HistoryResponse{GameID: sess.GameID, History: history})
}

// PostChat
// @Summary Post a player turn
// @Description Records the player's message. The reply is fetched afterwards from /stream using the returned message id.
// @Tags Game API
// @Accept json
// @Produce json
// @Param request body gamerequests.ChatRequest true "Player message"
// @Success 200 {object} gameresponses.ChatResponse
// @Failure 400 {object} responses.ErrorResponse
// @Failure 500 {object} responses.ErrorResponse
// @Router /chat [post]
func (gameRoute *GameRoute) PostChat(reqCtx *gin.Context) {
	var request gamerequests.ChatRequest
	if err := reqCtx.ShouldBindJSON(&request); err != nil {
		responses.HandleBindError(reqCtx, err, "chat-invalid")
		return
	}
	sess, ok := middlewares.GameSession(reqCtx, request.GameID)
	if !ok {
		missingSession(reqCtx)
		return
	}
	sess.PlayerNumber = request.PlayerNumber.Or(1)
	sess = sess.WithPlayerNames(session.ParsePlayerNames(request.PlayerNames))

	messageID, err := gameRoute.gameHandler.PostMessage(reqCtx.Request.Context(), sess, request.Message, request.IsSystem)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to record message")
		return
	}
	reqCtx.JSON(http.StatusOK, gameresponses.ChatResponse{
		MessageID:    messageID,
		Streaming:    true,
		PlayerNumber: sess.PlayerNumber,
	})
}

// PostAddPlayer
// @Summary Add a player
// @Description Appends a system notice asking the Dungeon Master to welcome the new player.
// @Tags Game API
// @Accept json
// @Produce json
// @Param request body gamerequests.PlayerRequest true "Player joining"
// @Success 200 {object} gameresponses.StatusResponse
// @Failure 400 {object} responses.ErrorResponse
// @Router /add_player [post]
func (gameRoute *GameRoute) PostAddPlayer(reqCtx *gin.Context) {
	gameRoute.changeRoster(reqCtx, "joined", 2, gameRoute.gameHandler.AddPlayer)
}

// PostRemovePlayer
// @Summary Remove a player
// @Description Appends a notice that the player left the game.
// @Tags Game API
// @Accept json
// @Produce json
// @Param request body gamerequests.PlayerRequest true "Player leaving"
// @Success 200 {object} gameresponses.StatusResponse
// @Failure 400 {object} responses.ErrorResponse
// @Router /remove_player [post]
func (gameRoute *GameRoute) PostRemovePlayer(reqCtx *gin.Context) {
	gameRoute.changeRoster(reqCtx, "left", 0, gameRoute.gameHandler.RemovePlayer)
}

type rosterChange func(ctx context.Context, sess session.Context, playerNumber int) error

// changeRoster applies a join or leave. A zero defaultNumber makes player_number required.
func (gameRoute *GameRoute) changeRoster(reqCtx *gin.Context, verb string, defaultNumber int, change rosterChange) {
	var request gamerequests.PlayerRequest
	if err := reqCtx.ShouldBindJSON(&request); err != nil {
		responses.HandleBindError(reqCtx, err, "player-invalid")
		return
	}
	playerNumber := request.PlayerNumber.Or(defaultNumber)
	if playerNumber < 1 {
		reqCtx.JSON(http.StatusOK, gameresponses.StatusResponse{Success: false, Error: "Player number required"})
		return
	}
	sess, ok := middlewares.GameSession(reqCtx, request.GameID)
	if !ok {
		missingSession(reqCtx)
		return
	}
	if err := change(reqCtx.Request.Context(), sess, playerNumber); err != nil {
		responses.HandleError(reqCtx, err, "Failed to update players")
		return
	}
	reqCtx.JSON(http.StatusOK, gameresponses.StatusResponse{
		Success:      true,
		Message:      "Player " + strconv.Itoa(playerNumber) + " " + verb,
		PlayerNumber: playerNumber,
	})
}

// PostRenamePlayer
// @Summary Rename a player id
// @Description Rewrites the player field of every message from one player id to another.
// @Tags Game API
// @Accept json
// @Produce json
// @Param request body gamerequests.RenamePlayerRequest true "Rename"
// @Success 200 {object} gameresponses.RenameResponse
// @Failure 400 {object} responses.ErrorResponse
// @Router /rename_player [post]
func (gameRoute *GameRoute) PostRenamePlayer(reqCtx *gin.Context) {
	var request gamerequests.RenamePlayerRequest
	if err := reqCtx.ShouldBindJSON(&request); err != nil {
		responses.HandleBindError(reqCtx, err, "rename-invalid")
		return
	}
	sess, ok := middlewares.GameSession(reqCtx, request.GameID)
	if !ok {
		missingSession(reqCtx)
		return
	}
	renamed, err := gameRoute.gameHandler.RenamePlayer(reqCtx.Request.Context(), sess, request.FromPlayer, request.ToPlayer)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to rename player")
		return
	}
	reqCtx.JSON(http.StatusOK, gameresponses.RenameResponse{Success: true, Renamed: renamed})
}

// PostGetUpdates
// @Summary Poll for new messages
// @Description Returns the visible messages added after last_message_count, used by other players in a shared game.
// @Tags Game API
// @Accept json
// @Produce json
// @Param request body gamerequests.UpdatesRequest true "Poll position"
// @Success 200 {object} gameresponses.UpdatesResponse
// @Failure 400 {object} responses.ErrorResponse
// @Router /get_updates [post]
func (gameRoute *GameRoute) PostGetUpdates(reqCtx *gin.Context) {
	var request gamerequests.UpdatesRequest
	if err := gamerequests.BindOptionalJSON(reqCtx, &request); err != nil {
		responses.HandleBindError(reqCtx, err, "updates-invalid")
		return
	}
	sess, ok := middlewares.GameSession(reqCtx, request.GameID)
	if !ok {
		missingSession(reqCtx)
		return
	}
	updates, next, err := gameRoute.gameHandler.Updates(reqCtx.Request.Context(), sess, request.LastMessageCount)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to load updates")
		return
	}
	if updates == nil {
		updates = []conversation.Message{}
	}
	reqCtx.JSON(http.StatusOK, gameresponses.UpdatesResponse{
		Success:      true,
		HasUpdates:   len(updates) > 0,
		Updates:      updates,
		MessageCount: next,
	})
}

// PostClear
// @Summary Delete a game
// @Description Removes the stored transcript of a game.
// @Tags Game API
// @Accept json
// @Produce json
// @Param request body gamerequests.GameRequest false "Game to clear"
// @Success 200 {object} gameresponses.StatusResponse
// @Failure 500 {object} responses.ErrorResponse
// @Router /clear [post]
func (gameRoute *GameRoute) PostClear(reqCtx *gin.Context) {
	var request gamerequests.GameRequest
	if err := gamerequests.BindOptionalJSON(reqCtx, &request); err != nil {
		responses.HandleBindError(reqCtx, err, "clear-invalid")
		return
	}
	sess, ok := middlewares.GameSession(reqCtx, request.GameID)
	if !ok {
		missingSession(reqCtx)
		return
	}
	if err := gameRoute.gameHandler.Clear(reqCtx.Request.Context(), sess); err != nil {
		responses.HandleError(reqCtx, err, "Failed to clear game")
		return
	}
	reqCtx.JSON(http.StatusOK, gameresponses.StatusResponse{Success: true, Message: "Conversation cleared"})
}

func missingSession(reqCtx *gin.Context) {
	responses.HandleNewError(reqCtx, platformerrors.ErrorTypeInternal, "session unavailable", "session-missing")
}
