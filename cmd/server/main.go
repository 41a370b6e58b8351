package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lggm33/DUAD/internal/config"
	"github.com/lggm33/DUAD/internal/logger"
	"github.com/lggm33/DUAD/pkg/commerce"
)

const shutdownGrace = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config yaml (optional, env vars apply either way)")
	flag.Parse()

	// A missing .env is fine; deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Service:     "commerce-api",
		Environment: cfg.Logging.Environment,
	})

	app, err := commerce.NewApp(cfg, commerce.WithLogger(appLogger))
	if err != nil {
		appLogger.Fatal().Err(err).Msg("server.startup_failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info().
			Str("address", cfg.Server.Address).
			Str("route_prefix", cfg.Server.RoutePrefix).
			Bool("cache", cfg.Cache.Enabled).
			Bool("archive", cfg.Archive.Enabled).
			Bool("monitor", cfg.Monitor.Enabled).
			Msg("server.listening")
		errCh <- app.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error().Err(err).Msg("server.failed")
		}
	case <-ctx.Done():
		appLogger.Info().Msg("server.shutdown_started")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := app.Shutdown(shutdownCtx); err != nil {
			appLogger.Error().Err(err).Msg("server.shutdown_failed")
		}
	}

	if err := app.Close(); err != nil {
		appLogger.Error().Err(err).Msg("server.cleanup_failed")
	}
	appLogger.Info().Msg("server.stopped")
}
