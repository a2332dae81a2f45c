package cmd

import (
	"os"

	"github.com/x0rium/llm-structured-output-benchmark/internal/llm"
)

// newExtractionClientFromFlags creates an extraction client from common CLI
// flags. It checks the endpoint and apiKey flags, falling back to the
// OPENROUTER_API_KEY and then OPENAI_API_KEY environment variables when no
// explicit key is provided.
func newExtractionClientFromFlags(endpoint, apiKey string) llm.Client {
	var opts []llm.Option
	if endpoint != "" {
		opts = append(opts, llm.WithBaseURL(endpoint))
	}
	if apiKey == "" {
		if envKey := os.Getenv("OPENROUTER_API_KEY"); envKey != "" {
			apiKey = envKey
		} else if envKey := os.Getenv("OPENAI_API_KEY"); envKey != "" {
			apiKey = envKey
		}
	}
	if apiKey != "" {
		opts = append(opts, llm.WithAPIKey(apiKey))
	}
	return llm.NewClient(opts...)
}
