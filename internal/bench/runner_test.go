package bench

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x0rium/llm-structured-output-benchmark/internal/config"
	"github.com/x0rium/llm-structured-output-benchmark/internal/llm"
	"github.com/x0rium/llm-structured-output-benchmark/internal/schema"
	"github.com/x0rium/llm-structured-output-benchmark/internal/testutil"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func johnResult() *llm.ExtractionResult {
	return &llm.ExtractionResult{
		Person: &schema.Person{
			Name:  strPtr("John"),
			Age:   intPtr(29),
			Email: strPtr("john@x.com"),
		},
		Usage: &llm.Usage{PromptTokens: 100, CompletionTokens: 20},
	}
}

func TestRunCaseSuccess(t *testing.T) {
	client := &testutil.MockExtractionClient{
		Results: map[string]*llm.ExtractionResult{
			"Meet John, 29yo, john@x.com": johnResult(),
		},
	}
	r := NewRunner(client)

	outcome := r.runCase(context.Background(), config.ModelConfig{Model: "m"}, TestCase{
		Description: "compact contact line",
		Content:     "Meet John, 29yo, john@x.com",
	})

	assert.Equal(t, StatusSuccess, outcome.Status)
	assert.Equal(t, "compact contact line", outcome.Description)
	require.NotNil(t, outcome.Usage)
	assert.Equal(t, 100, outcome.Usage.PromptTokens)
}

func TestRunCaseValidationError(t *testing.T) {
	client := &testutil.MockExtractionClient{
		Results: map[string]*llm.ExtractionResult{
			"input": {
				Person: &schema.Person{Name: nil, Age: intPtr(29), Email: nil},
				Usage:  &llm.Usage{PromptTokens: 50, CompletionTokens: 10},
			},
		},
	}
	r := NewRunner(client)

	outcome := r.runCase(context.Background(), config.ModelConfig{Model: "m"}, TestCase{
		Description: "requires a name",
		Content:     "input",
		Validate:    func(p *schema.Person) bool { return p.Name != nil },
	})

	assert.Equal(t, StatusValidationError, outcome.Status)
	// Validation errors still carry usage; the call itself succeeded.
	require.NotNil(t, outcome.Usage)
	assert.Equal(t, 50, outcome.Usage.PromptTokens)
}

func TestRunCaseValidatorPasses(t *testing.T) {
	client := &testutil.MockExtractionClient{
		Results: map[string]*llm.ExtractionResult{"input": johnResult()},
	}
	r := NewRunner(client)

	outcome := r.runCase(context.Background(), config.ModelConfig{Model: "m"}, TestCase{
		Description: "validator passes",
		Content:     "input",
		Validate:    func(p *schema.Person) bool { return p.Name != nil },
	})

	assert.Equal(t, StatusSuccess, outcome.Status)
}

func TestRunCaseFailureDropsUsage(t *testing.T) {
	client := &testutil.MockExtractionClient{
		Errors: map[string]error{
			"input": &llm.TransportError{StatusCode: 502, Message: "bad gateway"},
		},
	}
	r := NewRunner(client)

	outcome := r.runCase(context.Background(), config.ModelConfig{Model: "m"}, TestCase{
		Description: "transport failure",
		Content:     "input",
	})

	assert.Equal(t, StatusFailure, outcome.Status)
	assert.Nil(t, outcome.Usage)
	assert.Greater(t, outcome.Duration, time.Duration(0))
}

func TestRunCaseTimeoutBecomesFailure(t *testing.T) {
	client := &testutil.MockExtractionClient{
		ExtractFunc: func(ctx context.Context, req llm.ExtractionRequest) (*llm.ExtractionResult, error) {
			time.Sleep(200 * time.Millisecond)
			return johnResult(), nil
		},
	}
	r := NewRunner(client, WithCallTimeout(10*time.Millisecond), WithMaxRetries(1))

	outcome := r.runCase(context.Background(), config.ModelConfig{Model: "m"}, TestCase{
		Description: "always slow",
		Content:     "input",
	})

	assert.Equal(t, StatusFailure, outcome.Status)
	assert.Nil(t, outcome.Usage)
	// Two attempts timed out before the failure was recorded.
	assert.Equal(t, 2, client.Calls())
}

func TestRunCaseValidatorPanicIsFailure(t *testing.T) {
	client := &testutil.MockExtractionClient{
		Results: map[string]*llm.ExtractionResult{"input": johnResult()},
	}
	r := NewRunner(client)

	outcome := r.runCase(context.Background(), config.ModelConfig{Model: "m"}, TestCase{
		Description: "panicking validator",
		Content:     "input",
		Validate:    func(p *schema.Person) bool { panic("bad validator") },
	})

	assert.Equal(t, StatusFailure, outcome.Status)
}

func TestRunSuiteCountsInvariant(t *testing.T) {
	client := &testutil.MockExtractionClient{
		Results: map[string]*llm.ExtractionResult{
			"good": johnResult(),
			"null-name": {
				Person: &schema.Person{},
			},
		},
		Errors: map[string]error{
			"broken": &llm.TransportError{Message: "connection refused"},
		},
	}
	r := NewRunner(client)

	cases := []TestCase{
		{Description: "a", Content: "good"},
		{Description: "b", Content: "null-name", Validate: func(p *schema.Person) bool { return p.Name != nil }},
		{Description: "c", Content: "broken"},
		{Description: "d", Content: "good"},
	}

	summary := r.RunSuite(context.Background(), config.ModelConfig{Model: "m"}, cases)

	total := summary.Counts.Success + summary.Counts.ValidationError + summary.Counts.Failure
	assert.Equal(t, len(cases), total)
	assert.Equal(t, 2, summary.Counts.Success)
	assert.Equal(t, 1, summary.Counts.ValidationError)
	assert.Equal(t, 1, summary.Counts.Failure)
	assert.InDelta(t, 50.0, summary.SuccessRate, 1e-9)
}

func TestRunSuiteConcurrencyCap(t *testing.T) {
	var inflight, peak atomic.Int32
	client := &testutil.MockExtractionClient{
		ExtractFunc: func(ctx context.Context, req llm.ExtractionRequest) (*llm.ExtractionResult, error) {
			n := inflight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inflight.Add(-1)
			return johnResult(), nil
		},
	}
	r := NewRunner(client, WithConcurrency(1))

	cases := make([]TestCase, 8)
	for i := range cases {
		cases[i] = TestCase{Description: fmt.Sprintf("case %d", i), Content: "good"}
	}

	summary := r.RunSuite(context.Background(), config.ModelConfig{Model: "m"}, cases)

	assert.Equal(t, 8, summary.Counts.Success)
	assert.Equal(t, int32(1), peak.Load())
}

func TestRunAllRowsInConfigurationOrder(t *testing.T) {
	client := &testutil.MockExtractionClient{
		DefaultResult: johnResult(),
	}
	r := NewRunner(client)

	models := []config.ModelConfig{
		{Model: "model-a"},
		{Model: "model-b", Provider: "deepinfra"},
		{Model: "model-c"},
	}
	cases := make([]TestCase, 5)
	for i := range cases {
		cases[i] = TestCase{Description: fmt.Sprintf("case %d", i), Content: "x"}
	}

	report, err := r.RunAll(context.Background(), models, cases)
	require.NoError(t, err)

	require.Len(t, report.Summaries, 3)
	assert.Equal(t, "model-a", report.Summaries[0].Model)
	assert.Equal(t, "model-b", report.Summaries[1].Model)
	assert.Equal(t, "model-c", report.Summaries[2].Model)
	assert.Equal(t, "auto", report.Summaries[0].Provider)
	assert.Equal(t, "deepinfra", report.Summaries[1].Provider)

	// Suites are isolated: every call of suite N precedes every call of
	// suite N+1.
	requests := client.Requests()
	require.Len(t, requests, 15)
	for i, model := range []string{"model-a", "model-b", "model-c"} {
		for j := 0; j < 5; j++ {
			assert.Equal(t, model, requests[i*5+j].Model)
		}
	}
}

func TestRunAllAllFailuresStillReports(t *testing.T) {
	client := &testutil.MockExtractionClient{
		ExtractFunc: func(ctx context.Context, req llm.ExtractionRequest) (*llm.ExtractionResult, error) {
			return nil, &llm.TransportError{Message: "down"}
		},
	}
	r := NewRunner(client)

	report, err := r.RunAll(context.Background(),
		[]config.ModelConfig{{Model: "m"}},
		[]TestCase{{Description: "a", Content: "x"}, {Description: "b", Content: "y"}},
	)
	require.NoError(t, err)

	require.Len(t, report.Summaries, 1)
	assert.Zero(t, report.Summaries[0].SuccessRate)
	assert.Equal(t, 2, report.Summaries[0].Counts.Failure)
	assert.Zero(t, report.Summaries[0].CostUSD)
}

func TestRunAllIdempotentWithDeterministicStub(t *testing.T) {
	newClient := func() llm.Client {
		return &testutil.MockExtractionClient{
			Results: map[string]*llm.ExtractionResult{"x": johnResult()},
			Errors:  map[string]error{"y": &llm.TransportError{Message: "down"}},
		}
	}
	models := []config.ModelConfig{{
		Model:   "m",
		Pricing: config.Pricing{InputPerMTok: 0.20, OutputPerMTok: 1.10},
	}}
	cases := []TestCase{
		{Description: "a", Content: "x"},
		{Description: "b", Content: "y"},
	}

	first, err := NewRunner(newClient()).RunAll(context.Background(), models, cases)
	require.NoError(t, err)
	second, err := NewRunner(newClient()).RunAll(context.Background(), models, cases)
	require.NoError(t, err)

	// Identical apart from wall-clock timing.
	f, s := first.Summaries[0], second.Summaries[0]
	assert.Equal(t, f.Counts, s.Counts)
	assert.Equal(t, f.SuccessRate, s.SuccessRate)
	assert.Equal(t, f.PromptTokens, s.PromptTokens)
	assert.Equal(t, f.CompletionTokens, s.CompletionTokens)
	assert.Equal(t, f.CostUSD, s.CostUSD)
}

func TestRunAllRejectsEmptyInputs(t *testing.T) {
	r := NewRunner(&testutil.MockExtractionClient{})

	_, err := r.RunAll(context.Background(), nil, []TestCase{{Description: "a", Content: "x"}})
	assert.Error(t, err)

	_, err = r.RunAll(context.Background(), []config.ModelConfig{{Model: "m"}}, nil)
	assert.Error(t, err)
}
