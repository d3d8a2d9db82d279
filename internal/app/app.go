// Package app wires the service components together once per process.
package app

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/rs/zerolog"

	"audio-scoring-service/internal/config"
	"audio-scoring-service/internal/events"
	"audio-scoring-service/internal/observability/logging"
	"audio-scoring-service/internal/service/classifier"
	clambda "audio-scoring-service/internal/service/classifier/lambda"
	cmock "audio-scoring-service/internal/service/classifier/mock"
	"audio-scoring-service/internal/service/fragment"
	"audio-scoring-service/internal/service/store"
	"audio-scoring-service/internal/service/transcode"
)

// Application holds process-wide state: configuration, the remote
// service clients constructed once at startup, and the fragment
// processor built on top of them.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config
	Publisher   *events.Publisher
	Processor   *fragment.Processor
}

// New constructs the application from the provided configuration,
// creating the AWS clients and the Kafka publisher exactly once.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})
	logger := logging.WithComponent("application")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Classifier.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var invoker classifier.Invoker
	switch cfg.Classifier.Provider {
	case "mock":
		logger.Info().Msg("Using mock classifier provider")
		invoker = cmock.New()
	default:
		invoker = clambda.New(awslambda.NewFromConfig(awsCfg), cfg.Classifier.FunctionName)
	}

	scorer := classifier.New(
		invoker,
		cfg.Classifier.FunctionName,
		cfg.Classifier.Threshold,
		cfg.Classifier.RetryDelay,
	)
	writer := store.NewWriter(dynamodb.NewFromConfig(awsCfg), cfg.Store.TableName, cfg.Store.MaxPasses)
	publisher := events.New(&events.Config{
		Enabled:         cfg.Kafka.Enabled,
		Brokers:         cfg.Kafka.Brokers,
		TopicDetections: cfg.Kafka.TopicDetections,
		TopicSummaries:  cfg.Kafka.TopicSummaries,
		Principal:       cfg.Kafka.Principal,
	})
	transcoder := transcode.New(cfg.Service.FFmpegBinary)

	a := &Application{
		StartupTime: time.Now().UTC(),
		Logger:      logger,
		Cfg:         cfg,
		Publisher:   publisher,
		Processor:   fragment.NewProcessor(transcoder, scorer, writer, publisher),
	}

	logger.Info().
		Str("function", cfg.Classifier.FunctionName).
		Str("table", cfg.Store.TableName).
		Str("provider", cfg.Classifier.Provider).
		Msg("Audio scoring service application created")
	return a, nil
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	a.Logger.Info().Msg("Audio scoring service shutting down")
	if err := a.Publisher.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("Error closing event publisher")
	}
}
