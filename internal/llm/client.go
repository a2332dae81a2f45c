// Package llm provides the structured-output extraction client used by the
// benchmark engine. It speaks the OpenAI-compatible chat completions API and
// supports OpenRouter-style strict provider routing.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/x0rium/llm-structured-output-benchmark/internal/schema"
)

// Client abstracts the structured extraction service.
type Client interface {
	// Extract sends one extraction request and returns the parsed,
	// schema-conformant result.
	Extract(ctx context.Context, req ExtractionRequest) (*ExtractionResult, error)
}

// ExtractionRequest describes a single extraction call.
type ExtractionRequest struct {
	Model string
	// Provider pins the request to one upstream provider with fallbacks
	// disabled. Empty means default routing.
	Provider string
	// Content is the raw unstructured text to extract from.
	Content string
}

// Usage holds token counts reported by the provider.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// ExtractionResult is a successful extraction.
type ExtractionResult struct {
	Person *schema.Person
	// Usage is nil when the provider reported no token counts. It covers
	// every attempt made for this extraction, including repair re-prompts.
	Usage *Usage
	// Raw is the final model response body.
	Raw string
}

// TransportError is a network or provider-side failure other than a timeout.
type TransportError struct {
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("extraction request failed with status %d: %s", e.StatusCode, e.Message)
	}
	return "extraction request failed: " + e.Message
}

// providerRouting is the OpenRouter provider preferences block. Fallbacks are
// always disallowed so the benchmark measures the named provider, never a
// silent substitute.
type providerRouting struct {
	Order          []string `json:"order,omitempty"`
	AllowFallbacks bool     `json:"allow_fallbacks"`
}

// chatCompletionRequest extends the go-openai request with the routing block.
// The outer Temperature field is always serialized, unlike the embedded one,
// so an explicit temperature of 0 reaches the wire.
type chatCompletionRequest struct {
	openai.ChatCompletionRequest
	Temperature float32          `json:"temperature"`
	Provider    *providerRouting `json:"provider,omitempty"`
}

// OpenRouterClient implements Client against an OpenAI-compatible endpoint.
type OpenRouterClient struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	repairAttempts int
}

// NewClient creates a new extraction client.
func NewClient(opts ...Option) *OpenRouterClient {
	cfg := &clientConfig{
		baseURL:        "https://openrouter.ai/api/v1",
		httpClient:     http.DefaultClient,
		repairAttempts: 2,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &OpenRouterClient{
		httpClient:     cfg.httpClient,
		baseURL:        cfg.baseURL,
		apiKey:         cfg.apiKey,
		repairAttempts: cfg.repairAttempts,
	}
}

// buildChatRequest assembles the wire request for an extraction call. Pure:
// routing is an optional field, not a runtime mutation of the base request.
func buildChatRequest(req ExtractionRequest) chatCompletionRequest {
	out := chatCompletionRequest{
		ChatCompletionRequest: openai.ChatCompletionRequest{
			Model: req.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: extractionPrompt(req.Content)},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
		Temperature: 0,
	}
	if req.Provider != "" {
		out.Provider = &providerRouting{
			Order:          []string{req.Provider},
			AllowFallbacks: false,
		}
	}
	return out
}

// Extract performs the extraction call, validating the response against the
// contact schema. When the response is malformed it re-prompts the model with
// the validation error, up to the configured repair budget. Callers layering
// their own timeout retries on top should note that the two budgets compound.
func (c *OpenRouterClient) Extract(ctx context.Context, req ExtractionRequest) (*ExtractionResult, error) {
	chatReq := buildChatRequest(req)

	var total Usage
	var lastErr error
	for attempt := 0; attempt <= c.repairAttempts; attempt++ {
		resp, err := c.createChatCompletion(ctx, chatReq)
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, &TransportError{Message: "no choices returned"}
		}

		total.PromptTokens += resp.Usage.PromptTokens
		total.CompletionTokens += resp.Usage.CompletionTokens

		raw := resp.Choices[0].Message.Content
		person, err := schema.Decode(raw)
		if err == nil {
			result := &ExtractionResult{Person: person, Raw: raw}
			if total != (Usage{}) {
				result.Usage = &total
			}
			return result, nil
		}

		var ce *schema.ConformanceError
		if !errors.As(err, &ce) {
			return nil, err
		}
		lastErr = err

		slog.Debug("response failed schema validation, re-prompting",
			"model", req.Model,
			"attempt", attempt+1,
			"max_attempts", c.repairAttempts+1,
			"error", ce.Detail,
		)
		chatReq = appendRepairMessages(chatReq, raw, ce)
	}

	return nil, lastErr
}

// appendRepairMessages extends the conversation with the rejected reply and a
// correction instruction, so the model can fix its own output.
func appendRepairMessages(req chatCompletionRequest, rejected string, ce *schema.ConformanceError) chatCompletionRequest {
	req.Messages = append(req.Messages,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: rejected},
		openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			Content: fmt.Sprintf(
				"The previous reply was rejected: %s\nReply again with only a valid JSON object matching the schema.",
				ce.Detail,
			),
		},
	)
	return req
}

func (c *OpenRouterClient) createChatCompletion(ctx context.Context, chatReq chatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Message: err.Error()}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{StatusCode: httpResp.StatusCode, Message: err.Error()}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &TransportError{StatusCode: httpResp.StatusCode, Message: errorMessage(respBody)}
	}

	var resp openai.ChatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &TransportError{StatusCode: httpResp.StatusCode, Message: "malformed response body: " + err.Error()}
	}
	return &resp, nil
}

// errorMessage extracts the message from an OpenAI-style error envelope,
// falling back to the raw body.
func errorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return string(body)
}

func extractionPrompt(content string) string {
	return fmt.Sprintf(
		"Extract the contact information from the text below. "+
			"Respond with a single JSON object conforming to this JSON Schema, "+
			"using null for any field not present in the text:\n%s\n\nText:\n%s",
		schema.JSON(), content,
	)
}
