// Package mock provides a mock scoring adapter for running without AWS
// credentials. It returns canned detections and honors the request
// threshold the way the real scoring function does.
package mock

import (
	"context"
	"sync"

	"audio-scoring-service/internal/service/classifier"
)

// DefaultDetections provides sample ranked results for simulation.
var DefaultDetections = [][]classifier.TopResult{
	{
		{Index: 0, Scientific: "Cyanocitta cristata", Common: "Blue Jay", Score: 0.91},
		{Index: 1, Scientific: "Cardinalis cardinalis", Common: "Northern Cardinal", Score: 0.44},
		{Index: 2, Scientific: "Zenaida macroura", Common: "Mourning Dove", Score: 0.12},
	},
	{
		{Index: 0, Scientific: "Poecile atricapillus", Common: "Black-capped Chickadee", Score: 0.78},
		{Index: 1, Scientific: "Turdus migratorius", Common: "American Robin", Score: 0.31},
	},
	{
		{Index: 0, Scientific: "Turdus migratorius", Common: "American Robin", Score: 0.96},
	},
}

// Adapter implements classifier.Invoker with canned responses, cycling
// through DefaultDetections across invocations.
type Adapter struct {
	mu      sync.Mutex
	calls   int
	results [][]classifier.TopResult
}

// New creates a mock adapter cycling through the default detections.
func New() *Adapter {
	return &Adapter{results: DefaultDetections}
}

// NewWithResults creates a mock adapter with fixed result sets.
func NewWithResults(results [][]classifier.TopResult) *Adapter {
	return &Adapter{results: results}
}

// Invoke returns the next canned response, filtered by the request
// threshold.
func (a *Adapter) Invoke(_ context.Context, req classifier.Request) (*classifier.Response, error) {
	a.mu.Lock()
	var set []classifier.TopResult
	if len(a.results) > 0 {
		set = a.results[a.calls%len(a.results)]
	}
	a.calls++
	a.mu.Unlock()

	filtered := make([]classifier.TopResult, 0, len(set))
	for _, r := range set {
		if r.Score >= req.Threshold {
			filtered = append(filtered, r)
		}
	}
	return &classifier.Response{Code: 200, TopResults: filtered}, nil
}
