// Package classifier defines the interface to the remote audio scoring
// function and the single-delayed-retry policy around it.
package classifier

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"audio-scoring-service/internal/observability/metrics"
)

// Request is the JSON payload sent to the scoring function.
type Request struct {
	Body      string  `json:"body"`      // base64-encoded audio artifact
	Threshold float64 `json:"threshold"` // server-side confidence cutoff
}

// Response is the scoring function's decoded payload. A response is good
// iff Code is 200; anything else, including transport failures surfaced
// by the adapter, counts as bad.
type Response struct {
	Code       int         `json:"code"`
	TopResults []TopResult `json:"top_results"`
}

// TopResult is one ranked detection. On the wire it is a triple
// [index, [scientific, common], score]; older model versions emit a bare
// label string in the species slot.
type TopResult struct {
	Index      int
	Scientific string
	Common     string
	Score      float64
}

// Label returns the short identifier persisted for this detection.
func (r TopResult) Label() string {
	return r.Common
}

// UnmarshalJSON decodes the positional wire triple.
func (r *TopResult) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("top result: %w", err)
	}
	if len(parts) != 3 {
		return fmt.Errorf("top result: expected 3 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &r.Index); err != nil {
		return fmt.Errorf("top result index: %w", err)
	}
	var pair []string
	if err := json.Unmarshal(parts[1], &pair); err == nil {
		switch len(pair) {
		case 2:
			r.Scientific, r.Common = pair[0], pair[1]
		case 1:
			r.Common = pair[0]
		default:
			return fmt.Errorf("top result species: expected 1 or 2 names, got %d", len(pair))
		}
	} else {
		var label string
		if err := json.Unmarshal(parts[1], &label); err != nil {
			return fmt.Errorf("top result species: %w", err)
		}
		r.Common = label
	}
	if err := json.Unmarshal(parts[2], &r.Score); err != nil {
		return fmt.Errorf("top result score: %w", err)
	}
	return nil
}

// BadResponseError reports a non-200 scoring function response.
type BadResponseError struct {
	Function string
	Code     int
}

func (e *BadResponseError) Error() string {
	return fmt.Sprintf("function %s response code %d", e.Function, e.Code)
}

// Invoker is the interface for scoring function providers (AWS Lambda,
// mock, etc.).
type Invoker interface {
	// Invoke submits one scoring request and returns the decoded response.
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// Classifier wraps an Invoker with artifact loading and the retry policy:
// at most one additional attempt after a fixed delay. The delay is an
// unconditional sleep, not a backoff series.
type Classifier struct {
	invoker    Invoker
	function   string
	threshold  float64
	retryDelay time.Duration
	metrics    *metrics.Metrics
}

// New creates a Classifier around the given provider.
func New(invoker Invoker, function string, threshold float64, retryDelay time.Duration) *Classifier {
	return &Classifier{
		invoker:    invoker,
		function:   function,
		threshold:  threshold,
		retryDelay: retryDelay,
		metrics:    metrics.DefaultMetrics,
	}
}

// Score reads and base64-encodes the audio artifact, submits it to the
// scoring function, and returns the good response. A bad first response
// is retried exactly once after the configured delay; a bad second
// response is returned as the final error.
func (c *Classifier) Score(ctx context.Context, audioPath string) (*Response, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	req := Request{
		Body:      base64.StdEncoding.EncodeToString(audio),
		Threshold: c.threshold,
	}

	op := func() (*Response, error) {
		start := time.Now()
		resp, err := c.invoker.Invoke(ctx, req)
		c.metrics.RecordClassifierInvocation(time.Since(start).Seconds())
		if err != nil {
			c.metrics.RecordClassifierBadResponse("transport")
			return nil, err
		}
		if resp.Code != 200 {
			c.metrics.RecordClassifierBadResponse(fmt.Sprintf("%d", resp.Code))
			return nil, &BadResponseError{Function: c.function, Code: resp.Code}
		}
		return resp, nil
	}

	notify := func(err error, _ time.Duration) {
		c.metrics.RecordClassifierRetry()
		log.Warn().
			Err(err).
			Str("function", c.function).
			Dur("retryDelay", c.retryDelay).
			Msg("Bad classifier response, retrying once after delay")
	}

	bo := backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), 1)
	resp, err := backoff.RetryNotifyWithData(op, bo, notify)
	if err != nil {
		return nil, err
	}
	c.metrics.RecordDetections(len(resp.TopResults))
	return resp, nil
}
