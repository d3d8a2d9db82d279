// Package store drains detections into a keyed table through batched
// writes, reconciling the store's partial-batch rejections by re-queuing
// unprocessed items until every record has been accepted.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"audio-scoring-service/internal/models"
	"audio-scoring-service/internal/observability/metrics"
)

// BatchSize is the table store's per-request item limit.
const BatchSize = 25

// ErrNotDrained is returned when the optional pass cap fires before the
// work queue empties.
var ErrNotDrained = errors.New("work queue not drained within pass limit")

// BatchWriteAPI is the subset of the DynamoDB client used by the Writer.
type BatchWriteAPI interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Writer persists detections to one table.
type Writer struct {
	client    BatchWriteAPI
	table     string
	maxPasses int
	metrics   *metrics.Metrics
}

// NewWriter creates a Writer for the given table. maxPasses bounds the
// reconciliation loop; 0 means unbounded, matching the reference
// behavior where a persistently rejecting store is retried forever.
func NewWriter(client BatchWriteAPI, table string, maxPasses int) *Writer {
	return &Writer{
		client:    client,
		table:     table,
		maxPasses: maxPasses,
		metrics:   metrics.DefaultMetrics,
	}
}

// Summary reports how one fragment's detections drained.
type Summary struct {
	Items            int       // records handed to Put
	Batches          int       // batch requests issued
	Requeued         int       // unprocessed items sent back to the queue
	ConsumedCapacity []float64 // per-batch capacity units, 0 if unreported
	RetryAttempts    []int     // per-batch client-layer retry counts
}

// Put writes every detection to the table. The work queue starts in
// classifier order; each pass submits the first up-to-25 items as one
// batch and appends any store-reported unprocessed items to the tail of
// the queue, so re-queued items run strictly after everything that has
// not been attempted yet. The loop ends only when the queue drains,
// unless a non-default pass cap is configured. A transport-level batch
// failure aborts with the partial summary.
func (w *Writer) Put(ctx context.Context, detections []models.Detection) (Summary, error) {
	queue := make([]types.WriteRequest, 0, len(detections))
	for _, d := range detections {
		queue = append(queue, writeRequest(d))
	}

	sum := Summary{
		Items:            len(detections),
		ConsumedCapacity: []float64{},
		RetryAttempts:    []int{},
	}
	start := time.Now()

	for len(queue) > 0 {
		if w.maxPasses > 0 && sum.Batches >= w.maxPasses {
			return sum, fmt.Errorf("%w after %d batches, %d items pending", ErrNotDrained, sum.Batches, len(queue))
		}

		n := BatchSize
		if len(queue) < n {
			n = len(queue)
		}
		batch := queue[:n]
		queue = queue[n:]

		out, err := w.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems:           map[string][]types.WriteRequest{w.table: batch},
			ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
		})
		if err != nil {
			return sum, fmt.Errorf("batch write to %s: %w", w.table, err)
		}

		unprocessed := out.UnprocessedItems[w.table]
		queue = append(queue, unprocessed...)

		var capacity float64
		for _, cc := range out.ConsumedCapacity {
			if cc.CapacityUnits != nil {
				capacity += *cc.CapacityUnits
			}
		}
		attempts := 0
		if ar, ok := retry.GetAttemptResults(out.ResultMetadata); ok && len(ar.Results) > 0 {
			attempts = len(ar.Results) - 1
		}

		sum.Batches++
		sum.Requeued += len(unprocessed)
		sum.ConsumedCapacity = append(sum.ConsumedCapacity, capacity)
		sum.RetryAttempts = append(sum.RetryAttempts, attempts)
		w.metrics.RecordBatchWrite(n-len(unprocessed), len(unprocessed), capacity)
	}

	w.metrics.RecordStoreDrain(sum.Batches, time.Since(start).Seconds())
	return sum, nil
}

func writeRequest(d models.Detection) types.WriteRequest {
	return types.WriteRequest{
		PutRequest: &types.PutRequest{
			Item: map[string]types.AttributeValue{
				"species": &types.AttributeValueMemberS{Value: d.Species},
				"time":    &types.AttributeValueMemberN{Value: d.Time},
				"score":   &types.AttributeValueMemberN{Value: d.Score},
			},
		},
	}
}
