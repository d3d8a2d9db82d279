// Package fragment coordinates the per-fragment pipeline: transcode the
// captured media, score it with the remote classifier, and drain the
// detections into the table store.
package fragment

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"audio-scoring-service/internal/events"
	"audio-scoring-service/internal/models"
	"audio-scoring-service/internal/observability/logging"
	"audio-scoring-service/internal/observability/metrics"
	"audio-scoring-service/internal/service/classifier"
	"audio-scoring-service/internal/service/store"
)

// Transcoder produces the normalized audio artifact for a media file.
type Transcoder interface {
	ToOgg(ctx context.Context, mediaPath string) (string, error)
}

// Scorer invokes the remote classifier, including its retry policy.
type Scorer interface {
	Score(ctx context.Context, audioPath string) (*classifier.Response, error)
}

// Store drains detections into the table.
type Store interface {
	Put(ctx context.Context, detections []models.Detection) (store.Summary, error)
}

// Processor owns the per-process client handles and runs one fragment at
// a time. Each Process call owns its artifact, responses, and work
// queue; nothing is shared across invocations.
type Processor struct {
	transcoder Transcoder
	scorer     Scorer
	store      Store
	publisher  *events.Publisher
	metrics    *metrics.Metrics
}

// NewProcessor wires the pipeline stages together.
func NewProcessor(transcoder Transcoder, scorer Scorer, st Store, publisher *events.Publisher) *Processor {
	return &Processor{
		transcoder: transcoder,
		scorer:     scorer,
		store:      st,
		publisher:  publisher,
		metrics:    metrics.DefaultMetrics,
	}
}

// Process runs the full pipeline for one media fragment. Transcode
// failure is fatal and propagates. A classifier response that is still
// bad after the single delayed retry skips persistence with a warning
// and is not an error. The audio artifact is removed on every path that
// reaches past the transcode, success or not.
func (p *Processor) Process(ctx context.Context, mediaPath string, tags map[string]string) error {
	fragmentId := uuid.New().String()
	logger := logging.WithFragment(fragmentId, mediaPath)
	start := time.Now()

	seconds, err := models.ProducerSeconds(tags)
	if err != nil {
		p.metrics.RecordFragmentFailed("tags")
		return fmt.Errorf("fragment tags: %w", err)
	}

	transcodeStart := time.Now()
	audioPath, err := p.transcoder.ToOgg(ctx, mediaPath)
	p.metrics.RecordTranscode(err, time.Since(transcodeStart).Seconds())
	if err != nil {
		p.metrics.RecordFragmentFailed("transcode")
		return fmt.Errorf("transcode %s: %w", mediaPath, err)
	}

	// The artifact lives only for this invocation; remove it on every
	// exit path so repeated invocations never accumulate files.
	defer func() {
		if err := os.Remove(audioPath); err != nil {
			logger.Warn().Err(err).Str("audioPath", audioPath).Msg("Failed to remove audio artifact")
		}
	}()

	resp, err := p.scorer.Score(ctx, audioPath)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("producerTimestamp", tags[models.ProducerTimestampTag]).
			Msg("Classifier still bad after retry, skipping persistence")
		p.metrics.RecordFragmentSkipped()
		return nil
	}

	detections := buildDetections(resp.TopResults, seconds)
	sum, err := p.store.Put(ctx, detections)
	if err != nil {
		p.metrics.RecordFragmentFailed("store")
		return fmt.Errorf("persist detections: %w", err)
	}

	// Event publishing is best-effort; failures are logged by the
	// publisher and never fail the fragment.
	for _, d := range detections {
		_ = p.publisher.PublishDetection(ctx, fragmentId, models.DetectionEvent{
			EventType:  "audio.detection",
			FragmentID: fragmentId,
			Species:    d.Species,
			Time:       d.Time,
			Score:      d.Score,
		})
	}
	_ = p.publisher.PublishSummary(ctx, fragmentId, models.FragmentSummary{
		EventType:        "audio.fragment-summary",
		FragmentID:       fragmentId,
		Time:             seconds,
		Detections:       len(detections),
		Batches:          sum.Batches,
		ConsumedCapacity: sum.ConsumedCapacity,
		RetryAttempts:    sum.RetryAttempts,
	})

	logger.Info().
		Str("producerTimestamp", seconds).
		Int("detections", len(detections)).
		Int("batches", sum.Batches).
		Floats64("consumedCapacity", sum.ConsumedCapacity).
		Ints("retryAttempts", sum.RetryAttempts).
		Msg("Fragment detections persisted")
	p.metrics.RecordFragment(time.Since(start).Seconds())
	return nil
}

func buildDetections(results []classifier.TopResult, seconds string) []models.Detection {
	detections := make([]models.Detection, 0, len(results))
	for _, r := range results {
		detections = append(detections, models.Detection{
			Species: r.Label(),
			Time:    seconds,
			Score:   models.FormatScore(r.Score),
		})
	}
	return detections
}
