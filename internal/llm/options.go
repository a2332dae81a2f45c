package llm

import "net/http"

// clientConfig holds configuration for an extraction client.
type clientConfig struct {
	baseURL        string
	apiKey         string
	httpClient     *http.Client
	repairAttempts int
}

// Option is a functional option for configuring an extraction client.
type Option func(*clientConfig)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) {
		c.apiKey = key
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// WithRepairAttempts sets how many times a schema-nonconformant response is
// re-prompted before the extraction fails.
func WithRepairAttempts(n int) Option {
	return func(c *clientConfig) {
		if n >= 0 {
			c.repairAttempts = n
		}
	}
}
