package spool

import (
	"context"
	"time"

	"audio-scoring-service/internal/models"
	"audio-scoring-service/internal/observability/logging"
)

// Processor handles one fragment end to end.
type Processor interface {
	Process(ctx context.Context, mediaPath string, tags map[string]string) error
}

// Worker polls the spool directory and feeds complete fragment pairs to
// the processor, strictly one at a time.
type Worker struct {
	dir       string
	interval  time.Duration
	processor Processor
}

// NewWorker creates a Worker over the given spool directory.
func NewWorker(dir string, interval time.Duration, p Processor) *Worker {
	return &Worker{dir: dir, interval: interval, processor: p}
}

// Run polls until the context is canceled. The fragment being processed
// when cancellation arrives is finished before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	log := logging.WithComponent("spool")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.ProcessPass(ctx); err != nil {
			log.Error().Err(err).Str("dir", w.dir).Msg("Spool pass failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessPass scans the directory once and processes every complete
// pair found. Fragments with unreadable or invalid tags can never
// succeed and are removed; fragments that fail processing stay in place
// for the next pass.
func (w *Worker) ProcessPass(ctx context.Context) error {
	log := logging.WithComponent("spool")

	fragments, err := Scan(w.dir)
	if err != nil {
		return err
	}
	for _, f := range fragments {
		if ctx.Err() != nil {
			return nil
		}
		tags, err := LoadTags(f.TagsPath)
		if err == nil {
			_, err = models.ProducerSeconds(tags)
		}
		if err != nil {
			log.Warn().Err(err).Str("mediaPath", f.MediaPath).Msg("Discarding fragment with unusable tags")
			if rmErr := f.Remove(); rmErr != nil {
				log.Warn().Err(rmErr).Str("mediaPath", f.MediaPath).Msg("Failed to remove fragment")
			}
			continue
		}
		if err := w.processor.Process(ctx, f.MediaPath, tags); err != nil {
			log.Error().Err(err).Str("mediaPath", f.MediaPath).Msg("Fragment processing failed, leaving in spool")
			continue
		}
		if err := f.Remove(); err != nil {
			log.Warn().Err(err).Str("mediaPath", f.MediaPath).Msg("Failed to remove processed fragment")
		}
	}
	return nil
}
