package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/x0rium/llm-structured-output-benchmark/internal/config"
)

func newListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the configured model configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			fmt.Printf("Configured models:\n\n")
			for _, m := range cfg.Models {
				provider := m.Provider
				if provider == "" {
					provider = "auto"
				}
				fmt.Printf("  - %s\n", m.Model)
				fmt.Printf("    Provider: %s\n", provider)
				fmt.Printf("    Pricing: $%.2f in / $%.2f out per Mtok\n\n",
					m.Pricing.InputPerMTok, m.Pricing.OutputPerMTok)
			}
			fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
			fmt.Printf("Call timeout: %s (retries: %d)\n", cfg.CallTimeout.Std(), cfg.MaxRetries)

			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Benchmark config file (defaults to the embedded configuration)")

	return cmd
}
