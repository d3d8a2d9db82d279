// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration, loaded once at startup.
type Config struct {
	Service       ServiceConfig
	Classifier    ClassifierConfig
	Store         StoreConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	Name         string
	SpoolDir     string
	PollInterval time.Duration
	FFmpegBinary string
}

// ClassifierConfig holds settings for the remote scoring function.
type ClassifierConfig struct {
	Provider     string // "lambda" or "mock"
	FunctionName string
	Region       string
	Threshold    float64
	RetryDelay   time.Duration
}

// StoreConfig holds settings for the detections table.
type StoreConfig struct {
	TableName string
	// MaxPasses bounds the reconciliation loop over re-queued
	// unprocessed items. 0 means unbounded, which reproduces the
	// reference behavior and is the default.
	MaxPasses int
}

// KafkaConfig holds event publishing settings.
type KafkaConfig struct {
	Enabled         bool
	Brokers         []string
	TopicDetections string
	TopicSummaries  string
	Principal       string
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json, console
	HTTPAddr  string
}

// Load reads configuration from environment variables, falling back to
// defaults on missing or unparseable values.
func Load() *Config {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-audio-scoring")
	return &Config{
		Service: ServiceConfig{
			Name:         principal,
			SpoolDir:     envOrDefault("SPOOL_DIR", "/var/spool/audio-scoring"),
			PollInterval: envOrDefaultDuration("SPOOL_POLL_INTERVAL", 5*time.Second),
			FFmpegBinary: envOrDefault("FFMPEG_BINARY", "ffmpeg"),
		},
		Classifier: ClassifierConfig{
			Provider:     envOrDefault("CLASSIFIER_PROVIDER", "lambda"),
			FunctionName: envOrDefault("CLASSIFIER_FUNCTION_NAME", "audio-scoring"),
			Region:       envOrDefault("AWS_REGION", "us-east-1"),
			Threshold:    envOrDefaultFloat("CLASSIFIER_THRESHOLD", 0.0),
			RetryDelay:   envOrDefaultDuration("CLASSIFIER_RETRY_DELAY", 60*time.Second),
		},
		Store: StoreConfig{
			TableName: envOrDefault("DETECTIONS_TABLE", "detections"),
			MaxPasses: envOrDefaultInt("STORE_MAX_PASSES", 0),
		},
		Kafka: KafkaConfig{
			Enabled:         envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:         envBrokers("KAFKA_BROKERS"),
			TopicDetections: envOrDefault("KAFKA_TOPIC_DETECTIONS", "audio.detections"),
			TopicSummaries:  envOrDefault("KAFKA_TOPIC_SUMMARIES", "audio.fragment-summaries"),
			Principal:       envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
			HTTPAddr:  envOrDefault("OBSERVABILITY_HTTP_ADDR", ":9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envBrokers(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
