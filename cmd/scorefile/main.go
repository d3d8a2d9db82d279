// Command scorefile runs the scoring pipeline for a single media
// fragment and exits. Useful for smoke-testing a deployment without
// dropping files into the spool directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"audio-scoring-service/internal/app"
	"audio-scoring-service/internal/config"
	"audio-scoring-service/internal/models"
	"audio-scoring-service/internal/service/spool"
)

func main() {
	mediaPath := flag.String("media", "", "Path to the source media file (.mkv)")
	tagsPath := flag.String("tags", "", "Path to the sidecar tags JSON (defaults to the spool sidecar name)")
	timestamp := flag.String("timestamp", "", "Producer timestamp override, e.g. 1700000000.123456")
	flag.Parse()

	if *mediaPath == "" {
		log.Fatal("missing required -media flag")
	}

	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to create application: %v", err)
	}
	defer application.Shutdown()

	tags, err := loadTags(*mediaPath, *tagsPath, *timestamp)
	if err != nil {
		log.Fatalf("failed to load fragment tags: %v", err)
	}

	if err := application.Processor.Process(ctx, *mediaPath, tags); err != nil {
		log.Fatalf("fragment processing failed: %v", err)
	}
	fmt.Println("fragment processed")
}

func loadTags(mediaPath, tagsPath, timestamp string) (map[string]string, error) {
	if timestamp != "" {
		return map[string]string{models.ProducerTimestampTag: timestamp}, nil
	}
	if tagsPath == "" {
		tagsPath = spool.TagsPathFor(mediaPath)
	}
	return spool.LoadTags(tagsPath)
}
