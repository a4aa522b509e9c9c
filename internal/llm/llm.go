package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// Message roles accepted by the completion service.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat prompt.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Schema asks the service to constrain the reply to a JSON document.
type Schema struct {
	Name       string
	Definition jsonschema.Definition
}

// Request is a single chat completion call.
type Request struct {
	Model       string
	Temperature float64
	Messages    []Message
	Schema      *Schema
}

// Response is the assistant's reply.
type Response struct {
	Role    string
	Content string
	Model   string
}

// Completer produces chat completions.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ProviderError reports a failed call to the completion service.
type ProviderError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("llm provider error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("llm provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (*Response, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
