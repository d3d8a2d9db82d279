package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"audio-scoring-service/internal/app"
	"audio-scoring-service/internal/config"
	"audio-scoring-service/internal/observability"
	"audio-scoring-service/internal/service/spool"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to create application: %v", err)
	}
	defer application.Shutdown()

	obs := observability.NewServer(cfg.Observability.HTTPAddr)
	obs.Start()

	worker := spool.NewWorker(cfg.Service.SpoolDir, cfg.Service.PollInterval, application.Processor)
	application.Logger.Info().
		Str("spoolDir", cfg.Service.SpoolDir).
		Dur("pollInterval", cfg.Service.PollInterval).
		Msg("Audio scoring worker started")

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		application.Logger.Error().Err(err).Msg("Worker terminated")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := obs.Shutdown(shutdownCtx); err != nil {
		application.Logger.Error().Err(err).Msg("Observability server shutdown failed")
	}
}
