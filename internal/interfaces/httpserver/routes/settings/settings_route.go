package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jan-server/services/dm-api/internal/config"
	"jan-server/services/dm-api/internal/interfaces/httpserver/handlers/modelhandler"
	"jan-server/services/dm-api/internal/interfaces/httpserver/middlewares"
	gamerequests "jan-server/services/dm-api/internal/interfaces/httpserver/requests/game"
	"jan-server/services/dm-api/internal/interfaces/httpserver/responses"
	gameresponses "jan-server/services/dm-api/internal/interfaces/httpserver/responses/game"
)

// SettingsRoute stores per-browser preferences in cookies.
type SettingsRoute struct {
	modelHandler *modelhandler.ModelHandler
	secure       bool
}

func NewSettingsRoute(modelHandler *modelhandler.ModelHandler, cfg *config.Config) *SettingsRoute {
	return &SettingsRoute{modelHandler: modelHandler, secure: cfg.CookieSecure}
}

func (settingsRoute *SettingsRoute) RegisterRouter(router gin.IRouter) {
	router.POST("/set_storage_mode", settingsRoute.PostStorageMode)
	router.GET("/models", settingsRoute.GetModels)
	router.POST("/set_model", settingsRoute.PostModel)
}

// PostStorageMode
// @Summary Choose where transcripts live
// @Description `server` keeps transcripts on the server. `client` leaves them in the browser, which then posts history with each stream request.
// @Tags Settings API
// @Accept json
// @Produce json
// @Param request body gamerequests.StorageModeRequest true "Storage mode"
// @Success 200 {object} gameresponses.StorageModeResponse
// @Failure 400 {object} responses.ErrorResponse
// @Router /set_storage_mode [post]
func (settingsRoute *SettingsRoute) PostStorageMode(reqCtx *gin.Context) {
	var request gamerequests.StorageModeRequest
	if err := reqCtx.ShouldBindJSON(&request); err != nil {
		responses.HandleBindError(reqCtx, err, "storage-mode-invalid")
		return
	}
	middlewares.SetCookie(reqCtx, middlewares.StorageModeCookie, request.StorageMode, settingsRoute.secure)
	reqCtx.JSON(http.StatusOK, gameresponses.StorageModeResponse{Success: true, StorageMode: request.StorageMode})
}

// GetModels
// @Summary List models
// @Description Lists the Dungeon Master models, flagging the default and the caller's selection.
// @Tags Settings API
// @Produce json
// @Success 200 {object} gameresponses.ModelListResponse
// @Router /models [get]
func (settingsRoute *SettingsRoute) GetModels(reqCtx *gin.Context) {
	sess, _ := middlewares.SessionFromContext(reqCtx)
	reqCtx.JSON(http.StatusOK, settingsRoute.modelHandler.List(sess.ModelID))
}

// PostModel
// @Summary Select a model
// @Description Remembers the model for later turns. Unknown ids fall back to the default and report `fallback: true`.
// @Tags Settings API
// @Accept json
// @Produce json
// @Param request body gamerequests.SetModelRequest true "Model"
// @Success 200 {object} gameresponses.SetModelResponse
// @Failure 400 {object} responses.ErrorResponse
// @Router /set_model [post]
func (settingsRoute *SettingsRoute) PostModel(reqCtx *gin.Context) {
	var request gamerequests.SetModelRequest
	if err := reqCtx.ShouldBindJSON(&request); err != nil {
		responses.HandleBindError(reqCtx, err, "set-model-invalid")
		return
	}
	resp := settingsRoute.modelHandler.Select(request.ModelID)
	middlewares.SetCookie(reqCtx, middlewares.ModelIDCookie, resp.ModelID, settingsRoute.secure)
	reqCtx.Set(middlewares.ModelKey, resp.ModelID)
	reqCtx.JSON(http.StatusOK, resp)
}
