// Package events provides event publishing functionality.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"audio-scoring-service/internal/observability/metrics"
)

// Publisher publishes detection events to separate Kafka topics.
type Publisher struct {
	writerDetections *kafka.Writer
	writerSummaries  *kafka.Writer
	principal        string
	topicDetections  string
	topicSummaries   string
	enabled          bool
	metrics          *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers         []string
	TopicDetections string
	TopicSummaries  string
	Principal       string
	Enabled         bool
}

// New creates a new Kafka event publisher with separate topics for
// per-record detections and per-fragment summaries.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:       cfg.Principal,
			topicDetections: cfg.TopicDetections,
			topicSummaries:  cfg.TopicSummaries,
			enabled:         false,
			metrics:         m,
		}
	}

	// Custom dialer with longer timeouts for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writerDetections := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicDetections,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	writerSummaries := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicSummaries,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicDetections", cfg.TopicDetections).
		Str("topicSummaries", cfg.TopicSummaries).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerDetections: writerDetections,
		writerSummaries:  writerSummaries,
		principal:        cfg.Principal,
		topicDetections:  cfg.TopicDetections,
		topicSummaries:   cfg.TopicSummaries,
		enabled:          true,
		metrics:          m,
	}
}

// PublishDetection publishes one persisted detection to the detections topic.
func (p *Publisher) PublishDetection(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerDetections, p.topicDetections, "detection", key, event)
}

// PublishSummary publishes a fragment summary to the summaries topic.
func (p *Publisher) PublishSummary(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerSummaries, p.topicSummaries, "summary", key, event)
}

// publish is the internal method that writes to a specific Kafka writer.
func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerDetections != nil {
		if e := p.writerDetections.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing detections writer")
			err = e
		}
	}
	if p.writerSummaries != nil {
		if e := p.writerSummaries.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing summaries writer")
			err = e
		}
	}
	return err
}
