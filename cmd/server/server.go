package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"jan-server/services/dm-api/internal/config"
	"jan-server/services/dm-api/internal/infrastructure/crontab"
	"jan-server/services/dm-api/internal/infrastructure/logger"
	"jan-server/services/dm-api/internal/infrastructure/observability"
	"jan-server/services/dm-api/internal/interfaces/httpserver"
)

type Application struct {
	httpServer *httpserver.HTTPServer
	crontab    *crontab.Crontab
	preflight  *Preflight
}

// @title Jan Server DM API
// @version 1.0
// @description Streaming Dungeon Master relay for the AI tabletop game client.
// @contact.name Jan Server Team
// @contact.url https://github.com/janhq/jan-server
// @BasePath /
func (application *Application) Start(ctx context.Context) error {
	if err := application.preflight.Check(ctx); err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return application.crontab.Run(ctx)
	})
	eg.Go(func() error {
		return application.httpServer.Run(ctx)
	})
	return eg.Wait()
}

func main() {
	config.LoadEnvFiles()
	bootLog := logger.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("load config")
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		bootLog.Warn().Err(err).Msg("invalid log settings, using defaults")
		log = bootLog
	}
	log = log.With().Str("service", cfg.ServiceName).Str("version", config.Version).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("initialize observability")
	} else {
		defer shutdownTelemetry(otelShutdown, log)
	}

	application, cleanup, err := CreateApplication(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create application")
	}
	defer cleanup()

	if err := application.Start(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return
	}
	log.Info().Msg("server stopped")
}

func shutdownTelemetry(shutdown observability.ShutdownFunc, log zerolog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown telemetry")
	}
}
