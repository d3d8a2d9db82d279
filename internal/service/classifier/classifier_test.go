package classifier

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResponse_Unmarshal(t *testing.T) {
	raw := `{
		"code": 200,
		"top_results": [
			[0, ["Cyanocitta cristata", "Blue Jay"], 0.91],
			[1, ["Zenaida macroura", "Mourning Dove"], 0.12]
		]
	}`

	var resp Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Code != 200 {
		t.Errorf("expected code 200, got %d", resp.Code)
	}
	if len(resp.TopResults) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.TopResults))
	}
	first := resp.TopResults[0]
	if first.Index != 0 || first.Scientific != "Cyanocitta cristata" || first.Common != "Blue Jay" || first.Score != 0.91 {
		t.Errorf("unexpected first result: %+v", first)
	}
	if first.Label() != "Blue Jay" {
		t.Errorf("expected label 'Blue Jay', got %q", first.Label())
	}
}

func TestTopResult_Unmarshal_BareLabel(t *testing.T) {
	var r TopResult
	if err := json.Unmarshal([]byte(`[3, "Blue Jay", 0.5]`), &r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Index != 3 || r.Common != "Blue Jay" || r.Scientific != "" || r.Score != 0.5 {
		t.Errorf("unexpected result: %+v", r)
	}
}

func TestTopResult_Unmarshal_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"too few elements", `[1, "Blue Jay"]`},
		{"too many elements", `[1, "Blue Jay", 0.5, "extra"]`},
		{"not an array", `{"species": "Blue Jay"}`},
		{"bad score", `[1, "Blue Jay", "high"]`},
		{"bad index", `["one", "Blue Jay", 0.5]`},
		{"three names", `[1, ["a", "b", "c"], 0.5]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r TopResult
			if err := json.Unmarshal([]byte(tt.raw), &r); err == nil {
				t.Errorf("expected error for %s", tt.raw)
			}
		})
	}
}

// scriptedInvoker returns queued responses/errors in order.
type scriptedInvoker struct {
	responses []*Response
	errs      []error
	calls     int
	requests  []Request
}

func (s *scriptedInvoker) Invoke(_ context.Context, req Request) (*Response, error) {
	i := s.calls
	s.calls++
	s.requests = append(s.requests, req)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var resp *Response
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	return resp, err
}

func writeArtifact(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frag.ogg")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestScore_GoodFirstResponse(t *testing.T) {
	inv := &scriptedInvoker{
		responses: []*Response{{Code: 200, TopResults: []TopResult{{Common: "Blue Jay", Score: 0.9}}}},
		errs:      []error{nil},
	}
	c := New(inv, "audio-scoring", 0.0, time.Millisecond)

	audio := []byte("not really ogg")
	resp, err := c.Score(context.Background(), writeArtifact(t, audio))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.calls != 1 {
		t.Errorf("expected exactly 1 invocation, got %d", inv.calls)
	}
	if len(resp.TopResults) != 1 {
		t.Errorf("expected 1 result, got %d", len(resp.TopResults))
	}

	// Payload carries the base64 artifact and the fixed threshold
	req := inv.requests[0]
	if req.Body != base64.StdEncoding.EncodeToString(audio) {
		t.Error("expected request body to be the base64-encoded artifact")
	}
	if req.Threshold != 0.0 {
		t.Errorf("expected threshold 0.0, got %v", req.Threshold)
	}
}

func TestScore_BadThenGood_RetriesOnce(t *testing.T) {
	inv := &scriptedInvoker{
		responses: []*Response{
			{Code: 503},
			{Code: 200, TopResults: []TopResult{{Common: "American Robin", Score: 0.96}}},
		},
		errs: []error{nil, nil},
	}
	c := New(inv, "audio-scoring", 0.0, time.Millisecond)

	resp, err := c.Score(context.Background(), writeArtifact(t, []byte("audio")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.calls != 2 {
		t.Errorf("expected 2 invocations, got %d", inv.calls)
	}
	if resp.Code != 200 {
		t.Errorf("expected code 200, got %d", resp.Code)
	}
}

func TestScore_BadTwice_GivesUp(t *testing.T) {
	inv := &scriptedInvoker{
		responses: []*Response{{Code: 500}, {Code: 500}, {Code: 200}},
		errs:      []error{nil, nil, nil},
	}
	c := New(inv, "audio-scoring", 0.0, time.Millisecond)

	_, err := c.Score(context.Background(), writeArtifact(t, []byte("audio")))
	if err == nil {
		t.Fatal("expected error after two bad responses")
	}
	// At-most-one-retry, never a third attempt
	if inv.calls != 2 {
		t.Errorf("expected exactly 2 invocations, got %d", inv.calls)
	}
	var bad *BadResponseError
	if !errors.As(err, &bad) {
		t.Fatalf("expected BadResponseError, got %T: %v", err, err)
	}
	if bad.Code != 500 || bad.Function != "audio-scoring" {
		t.Errorf("unexpected error detail: %+v", bad)
	}
}

func TestScore_TransportErrorCountsAsBad(t *testing.T) {
	inv := &scriptedInvoker{
		responses: []*Response{nil, {Code: 200}},
		errs:      []error{errors.New("connection reset"), nil},
	}
	c := New(inv, "audio-scoring", 0.0, time.Millisecond)

	resp, err := c.Score(context.Background(), writeArtifact(t, []byte("audio")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.calls != 2 {
		t.Errorf("expected 2 invocations, got %d", inv.calls)
	}
	if resp.Code != 200 {
		t.Errorf("expected recovery on retry, got code %d", resp.Code)
	}
}

func TestScore_UnreadableArtifact(t *testing.T) {
	inv := &scriptedInvoker{}
	c := New(inv, "audio-scoring", 0.0, time.Millisecond)

	_, err := c.Score(context.Background(), "/nonexistent/frag.ogg")
	if err == nil {
		t.Fatal("expected error for unreadable artifact")
	}
	if inv.calls != 0 {
		t.Errorf("expected no invocations, got %d", inv.calls)
	}
}
