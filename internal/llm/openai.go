package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	client  *openai.Client
	timeout time.Duration
}

// OpenAIOption customizes the client.
type OpenAIOption func(*openai.ClientConfig, *OpenAIClient)

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(baseURL string) OpenAIOption {
	return func(cfg *openai.ClientConfig, _ *OpenAIClient) {
		if strings.TrimSpace(baseURL) != "" {
			cfg.BaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient swaps the transport.
func WithHTTPClient(httpClient *http.Client) OpenAIOption {
	return func(cfg *openai.ClientConfig, _ *OpenAIClient) {
		if httpClient != nil {
			cfg.HTTPClient = httpClient
		}
	}
}

// WithTimeout bounds each completion call. Zero disables the bound.
func WithTimeout(timeout time.Duration) OpenAIOption {
	return func(_ *openai.ClientConfig, c *OpenAIClient) {
		c.timeout = timeout
	}
}

// NewOpenAIClient builds a client for the given API key.
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	c := &OpenAIClient{}
	for _, opt := range opts {
		opt(&cfg, c)
	}
	c.client = openai.NewClientWithConfig(cfg)
	return c
}

// Complete sends the prompt and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, &ProviderError{Message: "empty prompt"}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, buildChatRequest(req))
	if err != nil {
		return nil, wrapProviderError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Message: "no choices returned"}
	}
	msg := resp.Choices[0].Message
	return &Response{Role: msg.Role, Content: msg.Content, Model: resp.Model}, nil
}

func buildChatRequest(req Request) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	out := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
	}
	if req.Schema != nil {
		def := req.Schema.Definition
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Schema.Name,
				Schema: &def,
				Strict: true,
			},
		}
	}
	return out
}

func wrapProviderError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error(), Err: err}
	}
	return &ProviderError{Message: err.Error(), Err: err}
}
