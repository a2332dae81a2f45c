// Package testutil provides shared test helpers.
package testutil

import (
	"context"
	"sync"

	"github.com/x0rium/llm-structured-output-benchmark/internal/llm"
	"github.com/x0rium/llm-structured-output-benchmark/internal/schema"
)

// MockExtractionClient is a configurable mock for llm.Client used across test
// packages. Safe for concurrent use: the engine may run cases in parallel.
type MockExtractionClient struct {
	// Results maps test-case content to canned extraction results.
	Results map[string]*llm.ExtractionResult

	// Errors maps test-case content to canned errors. Checked before Results.
	Errors map[string]error

	// DefaultResult is returned when no matching key is found.
	DefaultResult *llm.ExtractionResult

	// ExtractFunc, when set, overrides the map-based behavior entirely.
	ExtractFunc func(ctx context.Context, req llm.ExtractionRequest) (*llm.ExtractionResult, error)

	mu       sync.Mutex
	calls    int
	requests []llm.ExtractionRequest
}

func (m *MockExtractionClient) Extract(ctx context.Context, req llm.ExtractionRequest) (*llm.ExtractionResult, error) {
	m.mu.Lock()
	m.calls++
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, req)
	}

	if err, ok := m.Errors[req.Content]; ok {
		return nil, err
	}
	if res, ok := m.Results[req.Content]; ok {
		return res, nil
	}
	if m.DefaultResult != nil {
		return m.DefaultResult, nil
	}
	return &llm.ExtractionResult{Person: &schema.Person{}}, nil
}

// Calls reports the number of Extract invocations.
func (m *MockExtractionClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Requests returns a copy of every request seen, in arrival order.
func (m *MockExtractionClient) Requests() []llm.ExtractionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.ExtractionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
