package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"audio-scoring-service/internal/models"
)

// fakeStore records every batch request and rejects scripted positions
// within each call as unprocessed.
type fakeStore struct {
	table       string
	calls       [][]types.WriteRequest
	unprocessed map[int][]int   // call index -> positions within that batch to reject
	capacity    map[int]float64 // call index -> reported capacity units
	failAt      int             // call index to fail with a transport error, -1 to disable
}

func newFakeStore(table string) *fakeStore {
	return &fakeStore{
		table:       table,
		unprocessed: map[int][]int{},
		capacity:    map[int]float64{},
		failAt:      -1,
	}
}

func (f *fakeStore) BatchWriteItem(_ context.Context, params *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	idx := len(f.calls)
	batch := params.RequestItems[f.table]
	f.calls = append(f.calls, batch)

	if idx == f.failAt {
		return nil, errors.New("throughput exceeded")
	}

	out := &dynamodb.BatchWriteItemOutput{}
	if rejects := f.unprocessed[idx]; len(rejects) > 0 {
		items := make([]types.WriteRequest, 0, len(rejects))
		for _, pos := range rejects {
			items = append(items, batch[pos])
		}
		out.UnprocessedItems = map[string][]types.WriteRequest{f.table: items}
	}
	if cu, ok := f.capacity[idx]; ok {
		out.ConsumedCapacity = []types.ConsumedCapacity{{CapacityUnits: aws.Float64(cu)}}
	}
	return out, nil
}

func makeDetections(n int) []models.Detection {
	ds := make([]models.Detection, n)
	for i := range ds {
		ds[i] = models.Detection{
			Species: fmt.Sprintf("species-%02d", i),
			Time:    "1700000000",
			Score:   "0.5",
		}
	}
	return ds
}

func species(reqs []types.WriteRequest) []string {
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.PutRequest.Item["species"].(*types.AttributeValueMemberS).Value
	}
	return out
}

func TestPut_EmptyInput_NoBatchWrites(t *testing.T) {
	f := newFakeStore("detections")
	w := NewWriter(f, "detections", 0)

	sum, err := w.Put(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.calls) != 0 {
		t.Errorf("expected zero batch writes, got %d", len(f.calls))
	}
	if sum.Batches != 0 || sum.Items != 0 {
		t.Errorf("expected empty summary, got %+v", sum)
	}
	if len(sum.ConsumedCapacity) != 0 || len(sum.RetryAttempts) != 0 {
		t.Errorf("expected empty sequences, got %+v", sum)
	}
}

func TestPut_ThirtyRecords_TwoBatches(t *testing.T) {
	f := newFakeStore("detections")
	w := NewWriter(f, "detections", 0)

	sum, err := w.Put(context.Background(), makeDetections(30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.calls) != 2 {
		t.Fatalf("expected exactly 2 batch writes, got %d", len(f.calls))
	}
	if len(f.calls[0]) != 25 || len(f.calls[1]) != 5 {
		t.Errorf("expected batch sizes 25+5, got %d+%d", len(f.calls[0]), len(f.calls[1]))
	}
	if sum.Batches != 2 || sum.Requeued != 0 {
		t.Errorf("unexpected summary: %+v", sum)
	}
	if len(sum.ConsumedCapacity) != 2 || sum.ConsumedCapacity[0] != 0 || sum.ConsumedCapacity[1] != 0 {
		t.Errorf("expected zero capacity when unreported, got %v", sum.ConsumedCapacity)
	}
}

func TestPut_UnprocessedItemsRequeuedToTail(t *testing.T) {
	f := newFakeStore("detections")
	// Batch 1 rejects positions 3 and 7
	f.unprocessed[0] = []int{3, 7}
	w := NewWriter(f, "detections", 0)

	sum, err := w.Put(context.Background(), makeDetections(30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.calls) != 2 {
		t.Fatalf("expected 2 batch writes, got %d", len(f.calls))
	}

	// Rejected items run after every originally-unattempted item
	got := species(f.calls[1])
	want := []string{
		"species-25", "species-26", "species-27", "species-28", "species-29",
		"species-03", "species-07",
	}
	if len(got) != len(want) {
		t.Fatalf("expected second batch %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("second batch item %d = %s, want %s", i, got[i], want[i])
		}
	}
	if sum.Requeued != 2 {
		t.Errorf("expected 2 requeued items, got %d", sum.Requeued)
	}
}

func TestPut_EveryItemEventuallyAcceptedOnce(t *testing.T) {
	f := newFakeStore("detections")
	f.unprocessed[0] = []int{0, 1, 2}
	f.unprocessed[1] = []int{5} // rejects one of the re-queued items again
	w := NewWriter(f, "detections", 0)

	sum, err := w.Put(context.Background(), makeDetections(28))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	accepted := map[string]int{}
	for i, batch := range f.calls {
		rejected := map[int]bool{}
		for _, pos := range f.unprocessed[i] {
			rejected[pos] = true
		}
		for pos, name := range species(batch) {
			if !rejected[pos] {
				accepted[name]++
			}
		}
	}
	if len(accepted) != 28 {
		t.Fatalf("expected 28 distinct accepted items, got %d", len(accepted))
	}
	for name, count := range accepted {
		if count != 1 {
			t.Errorf("item %s accepted %d times, want exactly once", name, count)
		}
	}
	if sum.Requeued != 4 {
		t.Errorf("expected 4 requeued items, got %d", sum.Requeued)
	}
}

func TestPut_FullyRejectedBatch_ZeroProgressPass(t *testing.T) {
	f := newFakeStore("detections")
	// First pass accepts nothing
	f.unprocessed[0] = []int{0, 1, 2}
	w := NewWriter(f, "detections", 0)

	_, err := w.Put(context.Background(), makeDetections(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.calls) != 2 {
		t.Fatalf("expected 2 passes, got %d", len(f.calls))
	}
	if len(f.calls[1]) != 3 {
		t.Errorf("expected full batch retried, got %d items", len(f.calls[1]))
	}
}

func TestPut_ConsumedCapacityRecordedPerBatch(t *testing.T) {
	f := newFakeStore("detections")
	f.capacity[0] = 12.5
	// Batch 1 unreported -> recorded as 0
	w := NewWriter(f, "detections", 0)

	sum, err := w.Put(context.Background(), makeDetections(30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sum.ConsumedCapacity) != 2 || sum.ConsumedCapacity[0] != 12.5 || sum.ConsumedCapacity[1] != 0 {
		t.Errorf("expected capacity sequence [12.5 0], got %v", sum.ConsumedCapacity)
	}
	if len(sum.RetryAttempts) != 2 {
		t.Errorf("expected one retry count per batch, got %v", sum.RetryAttempts)
	}
}

func TestPut_PassCap_ReturnsErrNotDrained(t *testing.T) {
	f := newFakeStore("detections")
	// Store rejects the single item forever
	for i := 0; i < 10; i++ {
		f.unprocessed[i] = []int{0}
	}
	w := NewWriter(f, "detections", 5)

	sum, err := w.Put(context.Background(), makeDetections(1))
	if !errors.Is(err, ErrNotDrained) {
		t.Fatalf("expected ErrNotDrained, got %v", err)
	}
	if sum.Batches != 5 {
		t.Errorf("expected 5 batches before cap, got %d", sum.Batches)
	}
}

func TestPut_TransportError_Aborts(t *testing.T) {
	f := newFakeStore("detections")
	f.failAt = 1
	w := NewWriter(f, "detections", 0)

	sum, err := w.Put(context.Background(), makeDetections(30))
	if err == nil {
		t.Fatal("expected transport error to propagate")
	}
	if sum.Batches != 1 {
		t.Errorf("expected partial summary with 1 batch, got %d", sum.Batches)
	}
}

func TestWriteRequest_ItemShape(t *testing.T) {
	req := writeRequest(models.Detection{Species: "Blue Jay", Time: "1700000000", Score: "0.1235"})

	item := req.PutRequest.Item
	if s, ok := item["species"].(*types.AttributeValueMemberS); !ok || s.Value != "Blue Jay" {
		t.Errorf("unexpected species attribute: %#v", item["species"])
	}
	if n, ok := item["time"].(*types.AttributeValueMemberN); !ok || n.Value != "1700000000" {
		t.Errorf("unexpected time attribute: %#v", item["time"])
	}
	if n, ok := item["score"].(*types.AttributeValueMemberN); !ok || n.Value != "0.1235" {
		t.Errorf("unexpected score attribute: %#v", item["score"])
	}
}
