package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"

	"jan-server/services/dm-api/internal/interfaces/httpserver/handlers"
	"jan-server/services/dm-api/internal/interfaces/httpserver/routes/game"
	"jan-server/services/dm-api/internal/interfaces/httpserver/routes/settings"
	"jan-server/services/dm-api/internal/interfaces/httpserver/routes/stream"
)

var RouteProvider = wire.NewSet(
	handlers.HandlerProvider,

	game.NewGameRoute,
	stream.NewStreamRoute,
	settings.NewSettingsRoute,
	NewDMRoute,
)

// DMRoute mounts every endpoint of the browser client at the root path.
type DMRoute struct {
	game     *game.GameRoute
	stream   *stream.StreamRoute
	settings *settings.SettingsRoute
}

func NewDMRoute(game *game.GameRoute, stream *stream.StreamRoute, settings *settings.SettingsRoute) *DMRoute {
	return &DMRoute{
		game,
		stream,
		settings,
	}
}

func (dmRoute *DMRoute) RegisterRouter(router gin.IRouter) {
	router.GET("/version", GetVersion)
	router.GET("/healthz", GetHealthz)
	router.GET("/readyz", GetReadyz)

	dmRoute.game.RegisterRouter(router)
	dmRoute.stream.RegisterRouter(router)
	dmRoute.settings.RegisterRouter(router)
}
