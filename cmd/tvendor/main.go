// Package main is the entry point for the tvendor server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tvendorhq/tvendor/internal/audit"
	"github.com/tvendorhq/tvendor/internal/config"
	"github.com/tvendorhq/tvendor/internal/logging"
	"github.com/tvendorhq/tvendor/internal/observability"
	"github.com/tvendorhq/tvendor/internal/server"
)

func main() {
	// Local .env can supply the ${VAR:-default} expansions in the config.
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("failed to load configuration")
	}

	if *debug {
		cfg.Logging.Level = "debug"
	}
	logger := logging.New(cfg.Logging)
	logging.Global(cfg.Logging)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	logger.Info().
		Int("port", cfg.Server.Port).
		Bool("metrics", cfg.Observability.MetricsEnabled).
		Bool("alerts", cfg.Observability.AlertsEnabled).
		Bool("udp_sink", cfg.Observability.UDP.Enabled).
		Msg("tvendor starting")

	trail, err := audit.NewTrail(cfg.Audit)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open audit trail")
	}
	defer trail.Close()

	// The observability manager is constructed once here and injected;
	// there is no package-level instance.
	obs := observability.New(cfg.Observability, logger.Zerolog())
	defer obs.Close()

	srv := server.New(cfg, logger.Zerolog(), obs, trail)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info().Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("server shutdown error")
		}
	}()

	if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
		logger.Fatal().Err(err).Msg("server error")
	}

	logger.Info().Msg("tvendor stopped")
}
