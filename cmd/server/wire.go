//go:build wireinject

package main

import (
	"context"

	"jan-server/services/dm-api/internal/config"
	"jan-server/services/dm-api/internal/domain"
	"jan-server/services/dm-api/internal/infrastructure"
	"jan-server/services/dm-api/internal/interfaces"
	"jan-server/services/dm-api/internal/interfaces/httpserver/routes"

	"github.com/google/wire"
	"github.com/rs/zerolog"
)

func CreateApplication(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Application, func(), error) {
	wire.Build(
		domain.ServiceProvider,
		infrastructure.InfrastructureProvider,
		routes.RouteProvider,
		interfaces.InterfacesProvider,
		wire.Struct(new(Preflight), "*"),
		wire.Struct(new(Application), "*"),
	)
	return nil, nil, nil
}
