// Package bench is the benchmark execution engine. It drives
// concurrency-limited extraction calls over a test-case collection for each
// model configuration, classifies every outcome, and reduces them into
// per-suite and per-run statistics.
package bench

import (
	"time"

	"github.com/x0rium/llm-structured-output-benchmark/internal/llm"
	"github.com/x0rium/llm-structured-output-benchmark/internal/schema"
)

// Status classifies the outcome of one extraction case.
type Status string

const (
	// StatusSuccess: the response conformed to the schema and passed the
	// case validator (or the case has none).
	StatusSuccess Status = "success"
	// StatusValidationError: schema-conformant but rejected by the case
	// validator.
	StatusValidationError Status = "validation_error"
	// StatusFailure: the call errored (timeout after retries, transport
	// failure, or schema conformance exhausted).
	StatusFailure Status = "failure"
)

// TestCase is one extraction scenario. Validate, when set, is a pure
// predicate over the parsed result; nil means schema conformance alone is
// sufficient. Validators must not panic; a panicking validator is classified
// as a failure, not a validation error.
type TestCase struct {
	Description string
	Content     string
	Validate    func(*schema.Person) bool
}

// CaseOutcome is the immutable result of one (configuration, test case)
// execution. Usage is nil when the call failed or the provider reported no
// token counts.
type CaseOutcome struct {
	Status      Status
	Description string
	Duration    time.Duration
	Usage       *llm.Usage
}

// Counts breaks a suite down by outcome status.
type Counts struct {
	Success         int `json:"success"`
	ValidationError int `json:"validation_error"`
	Failure         int `json:"failure"`
}

// SuiteSummary aggregates one model configuration's full test-case run.
type SuiteSummary struct {
	Model string `json:"model"`
	// Provider is the routing constraint, resolved to "auto" for display
	// when the configuration left routing to the gateway.
	Provider string `json:"provider"`

	SuccessRate float64 `json:"success_rate_percent"`
	Counts      Counts  `json:"counts"`

	// AvgSuccessLatency is the mean duration over successful cases only.
	AvgSuccessLatency time.Duration `json:"avg_success_latency_ns"`
	// SuiteDuration is the wall-clock time for the whole suite.
	SuiteDuration time.Duration `json:"suite_duration_ns"`

	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// Report is the terminal artifact of a benchmark run: one summary per model
// configuration, in configuration-list order.
type Report struct {
	Timestamp time.Time      `json:"timestamp"`
	Duration  time.Duration  `json:"duration_ns"`
	Summaries []SuiteSummary `json:"summaries"`
}
