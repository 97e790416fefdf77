package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/kevingruber/turbo-cache/internal/config"
	"github.com/kevingruber/turbo-cache/internal/server"
	"github.com/kevingruber/turbo-cache/internal/storage"
	"github.com/kevingruber/turbo-cache/internal/telemetry"
	"github.com/rs/zerolog"
)

var version = "dev"

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if len(cfg.Auth.Tokens) == 0 {
		logger.Warn().Msg("no auth tokens configured, artifact endpoints will reject every request")
	}

	cleanup, err := telemetry.Setup(telemetry.Options{
		SentryEnabled: cfg.Sentry.Enabled,
		SentryDSN:     cfg.Sentry.Dsn,
		Release:       version,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to setup telemetry")
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := cfg.StorageOptions()
	store, err := storage.New(ctx, opts)
	if err != nil {
		logger.Fatal().Err(err).Str("provider", string(opts.Provider)).Msg("failed to create storage")
	}
	logger.Info().
		Str("provider", string(opts.Provider)).
		Str("bucket", opts.Bucket).
		Msg("storage initialized")

	srv, err := server.New(cfg, store, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create server")
	}

	// Setup graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	if err := srv.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}

	logger.Info().Msg("server stopped")
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var logger zerolog.Logger
	if cfg.Format == "json" {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	}

	return logger.With().Str("service", "turbo-cache").Str("version", version).Logger()
}
