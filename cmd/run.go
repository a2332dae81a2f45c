package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/x0rium/llm-structured-output-benchmark/internal/bench"
	"github.com/x0rium/llm-structured-output-benchmark/internal/config"
	"github.com/x0rium/llm-structured-output-benchmark/internal/report"
	"github.com/x0rium/llm-structured-output-benchmark/internal/testcases"
)

func newRunCmd() *cobra.Command {
	var (
		configPath  string
		model       string
		endpoint    string
		apiKey      string
		timeout     time.Duration
		retries     int
		concurrency int
		outputPath  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the extraction benchmark over all configured models",
		Long: `Run the structured-extraction test suite against every configured model,
one model at a time, and print the comparison report.

Each suite completes fully before the next model starts, so one model's
latency cannot interfere with another's measurement.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// Best-effort .env loading for local runs.
			_ = godotenv.Load()

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := cfg.FilterModels(model); err != nil {
				return err
			}
			if timeout > 0 {
				cfg.CallTimeout = config.Duration(timeout)
			}
			if cmd.Flags().Changed("retries") {
				cfg.MaxRetries = retries
			}
			if concurrency > 0 {
				cfg.Concurrency = concurrency
			}

			client := newExtractionClientFromFlags(endpoint, apiKey)
			cases := testcases.Cases()

			fmt.Printf("Structured extraction benchmark\n")
			fmt.Printf("Models to test: %d\n", len(cfg.Models))
			for i, m := range cfg.Models {
				provider := m.Provider
				if provider == "" {
					provider = "auto"
				}
				fmt.Printf("  %d. %s (provider: %s)\n", i+1, m.Model, provider)
			}
			fmt.Printf("Test cases: %d\n\n", len(cases))

			runner := bench.NewRunner(client,
				bench.WithConcurrency(cfg.Concurrency),
				bench.WithCallTimeout(cfg.CallTimeout.Std()),
				bench.WithMaxRetries(cfg.MaxRetries),
			)

			rep, err := runner.RunAll(ctx, cfg.Models, cases)
			if err != nil {
				return err
			}

			fmt.Println()
			if err := report.Render(os.Stdout, rep); err != nil {
				return fmt.Errorf("failed to render report: %w", err)
			}
			fmt.Printf("\nTotal duration: %s\n", rep.Duration.Round(time.Millisecond))

			if outputPath != "" {
				if err := report.WriteJSON(outputPath, rep); err != nil {
					return err
				}
				fmt.Printf("Report written to %s\n", outputPath)
			}

			slog.Info("benchmark complete", "models", len(rep.Summaries), "duration", rep.Duration)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Benchmark config file (defaults to the embedded configuration)")
	cmd.Flags().StringVar(&model, "model", "", "Run only the named model from the configuration")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Extraction API endpoint URL")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (or set OPENROUTER_API_KEY / OPENAI_API_KEY)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-call timeout override (e.g. 30s)")
	cmd.Flags().IntVar(&retries, "retries", 2, "Retry budget for timed-out calls")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "In-flight call cap within one suite")
	cmd.Flags().StringVar(&outputPath, "output", "", "Write the report as JSON to this path")

	return cmd
}
