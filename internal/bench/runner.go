package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/x0rium/llm-structured-output-benchmark/internal/config"
	"github.com/x0rium/llm-structured-output-benchmark/internal/llm"
	"github.com/x0rium/llm-structured-output-benchmark/internal/schema"
)

const (
	defaultCallTimeout = 30 * time.Second
	defaultMaxRetries  = 2
)

// Runner executes the benchmark: one suite per model configuration, one
// extraction call per test case.
type Runner struct {
	client      llm.Client
	concurrency int
	callTimeout time.Duration
	maxRetries  int
}

// Option is a functional option for configuring a Runner.
type Option func(*Runner)

// WithConcurrency caps in-flight extraction calls within one suite.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithCallTimeout sets the per-call deadline for a single extraction attempt.
func WithCallTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.callTimeout = d
		}
	}
}

// WithMaxRetries sets how many times a timed-out call is retried.
func WithMaxRetries(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.maxRetries = n
		}
	}
}

// NewRunner creates a benchmark runner using the given extraction client.
func NewRunner(client llm.Client, opts ...Option) *Runner {
	r := &Runner{
		client:      client,
		concurrency: 1,
		callTimeout: defaultCallTimeout,
		maxRetries:  defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunAll iterates model configurations strictly sequentially -- suite N+1
// never starts before every task of suite N has settled, so one model's load
// cannot skew another's measurement. A fully-failed suite still yields its
// summary row; nothing short of cancellation stops the run.
func (r *Runner) RunAll(ctx context.Context, models []config.ModelConfig, cases []TestCase) (*Report, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("no model configurations to benchmark")
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("no test cases to run")
	}

	start := time.Now()
	report := &Report{
		Timestamp: start,
		Summaries: make([]SuiteSummary, 0, len(models)),
	}

	for _, mc := range models {
		if err := ctx.Err(); err != nil {
			slog.Warn("benchmark cancelled before suite", "model", mc.Model)
			break
		}
		report.Summaries = append(report.Summaries, r.RunSuite(ctx, mc, cases))
	}

	report.Duration = time.Since(start)
	return report, nil
}

// RunSuite runs every test case against one model configuration under the
// concurrency limiter and reduces the outcomes into a SuiteSummary. Each task
// writes into its own fixed slot, so the result buffer needs no locking and
// completion order never matters to the reduction.
func (r *Runner) RunSuite(ctx context.Context, mc config.ModelConfig, cases []TestCase) SuiteSummary {
	slog.Info("running extraction suite",
		"model", mc.Model,
		"provider", displayProvider(mc),
		"cases", len(cases),
	)
	slog.Debug("per-case latency bound",
		"model", mc.Model,
		"bound", r.callTimeout*time.Duration(r.maxRetries+1),
	)

	start := time.Now()
	outcomes := make([]CaseOutcome, len(cases))
	limiter := NewLimiter(r.concurrency)

	var wg sync.WaitGroup
	for i, tc := range cases {
		wg.Add(1)
		go func(idx int, tc TestCase) {
			defer wg.Done()
			limiter.Acquire()
			defer limiter.Release()
			outcomes[idx] = r.runCase(ctx, mc, tc)
		}(i, tc)
	}
	wg.Wait()

	summary := summarize(mc, outcomes, time.Since(start))

	slog.Info("suite complete",
		"model", summary.Model,
		"provider", summary.Provider,
		"duration", summary.SuiteDuration,
		"success", summary.Counts.Success,
		"validation_errors", summary.Counts.ValidationError,
		"failures", summary.Counts.Failure,
		"success_rate", fmt.Sprintf("%.1f%%", summary.SuccessRate),
		"prompt_tokens", summary.PromptTokens,
		"completion_tokens", summary.CompletionTokens,
		"cost_usd", fmt.Sprintf("%.4f", summary.CostUSD),
	)

	return summary
}

// runCase executes one test case against one configuration. It never returns
// an error: every failure mode is caught here and classified into the
// outcome.
func (r *Runner) runCase(ctx context.Context, mc config.ModelConfig, tc TestCase) CaseOutcome {
	start := time.Now()

	result, err := WithTimeoutAndRetries(ctx, r.callTimeout, r.maxRetries,
		func(ctx context.Context) (*llm.ExtractionResult, error) {
			return r.client.Extract(ctx, llm.ExtractionRequest{
				Model:    mc.Model,
				Provider: mc.Provider,
				Content:  tc.Content,
			})
		})
	duration := time.Since(start)

	if err == nil && tc.Validate != nil {
		var ok bool
		ok, err = runValidator(tc.Validate, result.Person)
		if err == nil && !ok {
			slog.Info("case complete",
				"status", StatusValidationError,
				"description", tc.Description,
				"duration_ms", duration.Milliseconds(),
			)
			return CaseOutcome{
				Status:      StatusValidationError,
				Description: tc.Description,
				Duration:    duration,
				Usage:       result.Usage,
			}
		}
	}

	if err != nil {
		slog.Info("case failed",
			"description", tc.Description,
			"reason", reasonTag(err),
			"duration_ms", duration.Milliseconds(),
		)
		return CaseOutcome{
			Status:      StatusFailure,
			Description: tc.Description,
			Duration:    duration,
		}
	}

	slog.Info("case complete",
		"status", StatusSuccess,
		"description", tc.Description,
		"duration_ms", duration.Milliseconds(),
	)
	return CaseOutcome{
		Status:      StatusSuccess,
		Description: tc.Description,
		Duration:    duration,
		Usage:       result.Usage,
	}
}

// runValidator shields the engine from validator panics. Validators are
// contractually pure, but a panicking one classifies as a failure rather
// than a validation error.
func runValidator(validate func(*schema.Person) bool, p *schema.Person) (ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("validator panicked: %v", rec)
		}
	}()
	return validate(p), nil
}

// summarize reduces case outcomes into suite statistics. The reduction is
// order-independent: sums and counts only.
func summarize(mc config.ModelConfig, outcomes []CaseOutcome, elapsed time.Duration) SuiteSummary {
	s := SuiteSummary{
		Model:         mc.Model,
		Provider:      displayProvider(mc),
		SuiteDuration: elapsed,
	}

	var successLatency time.Duration
	for _, o := range outcomes {
		switch o.Status {
		case StatusSuccess:
			s.Counts.Success++
			successLatency += o.Duration
		case StatusValidationError:
			s.Counts.ValidationError++
		case StatusFailure:
			s.Counts.Failure++
		}
		if o.Usage != nil {
			s.PromptTokens += o.Usage.PromptTokens
			s.CompletionTokens += o.Usage.CompletionTokens
		}
	}

	// Denominator is the full case count: failures are penalized, never
	// excluded from the rate.
	if len(outcomes) > 0 {
		s.SuccessRate = float64(s.Counts.Success) / float64(len(outcomes)) * 100
	}
	if s.Counts.Success > 0 {
		s.AvgSuccessLatency = successLatency / time.Duration(s.Counts.Success)
	}

	s.CostUSD = float64(s.PromptTokens)/1e6*mc.Pricing.InputPerMTok +
		float64(s.CompletionTokens)/1e6*mc.Pricing.OutputPerMTok

	return s
}

// reasonTag maps an error to the short classification tag used in case logs.
func reasonTag(err error) string {
	var te *TimeoutError
	if errors.As(err, &te) {
		return "timeout"
	}
	var ce *schema.ConformanceError
	if errors.As(err, &ce) {
		return "schema"
	}
	var tr *llm.TransportError
	if errors.As(err, &tr) {
		return "transport"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return "error"
}

// displayProvider resolves an absent routing constraint to the display
// default.
func displayProvider(mc config.ModelConfig) string {
	if mc.Provider == "" {
		return "auto"
	}
	return mc.Provider
}
