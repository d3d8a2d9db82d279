// Package models defines the data structures for detections and the
// events published for them.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ProducerTimestampTag is the fragment tag carrying the capture-side
// timestamp, formatted "<seconds>.<subsecond>".
const ProducerTimestampTag = "AWS_KINESISVIDEO_PRODUCER_TIMESTAMP"

// Detection is one persisted classification result. Time and Score are
// kept as strings because that is exactly what goes on the wire: the
// table store takes numbers as strings, and the event payloads reuse
// the same representation.
type Detection struct {
	Species string `json:"species"`
	Time    string `json:"time"`
	Score   string `json:"score"`
}

// DetectionEvent is published to the detections topic, one per
// persisted record.
type DetectionEvent struct {
	EventType  string `json:"eventType"`
	FragmentID string `json:"fragmentId"`
	Species    string `json:"species"`
	Time       string `json:"time"`
	Score      string `json:"score"`
}

// FragmentSummary is published to the summaries topic once per
// processed fragment, after its detections have drained to the store.
type FragmentSummary struct {
	EventType        string    `json:"eventType"`
	FragmentID       string    `json:"fragmentId"`
	Time             string    `json:"time"`
	Detections       int       `json:"detections"`
	Batches          int       `json:"batches"`
	ConsumedCapacity []float64 `json:"consumedCapacity"`
	RetryAttempts    []int     `json:"retryAttempts"`
}

// ProducerSeconds extracts the whole-seconds portion of the producer
// timestamp tag. The sub-second part is discarded, not rounded: the
// reader side keys on whole seconds and two fragments in the same
// second must collide.
func ProducerSeconds(tags map[string]string) (string, error) {
	v, ok := tags[ProducerTimestampTag]
	if !ok {
		return "", fmt.Errorf("fragment tags missing %s", ProducerTimestampTag)
	}
	seconds, _, _ := strings.Cut(v, ".")
	if seconds == "" {
		return "", fmt.Errorf("malformed producer timestamp %q", v)
	}
	for _, r := range seconds {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("malformed producer timestamp %q", v)
		}
	}
	return seconds, nil
}

// FormatScore renders a classifier score as a decimal string rounded
// to 4 places, ties to even, with trailing zeros trimmed. "0.123456789"
// becomes "0.1235" and "0.5" stays "0.5".
func FormatScore(score float64) string {
	s := strconv.FormatFloat(score, 'f', 4, 64)
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}
