package handlers

import (
	"github.com/google/wire"

	"jan-server/services/dm-api/internal/interfaces/httpserver/handlers/gamehandler"
	"jan-server/services/dm-api/internal/interfaces/httpserver/handlers/modelhandler"
	"jan-server/services/dm-api/internal/interfaces/httpserver/handlers/streamhandler"
)

var HandlerProvider = wire.NewSet(
	gamehandler.NewGameHandler,
	streamhandler.NewStreamHandler,
	modelhandler.NewModelHandler,
)
