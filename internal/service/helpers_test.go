package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/support-assistant/internal/events"
	"github.com/spec-kit/support-assistant/internal/llm"
	"github.com/spec-kit/support-assistant/internal/observability"
	"github.com/spec-kit/support-assistant/internal/prompt"
	"github.com/spec-kit/support-assistant/internal/repository"
	"github.com/spec-kit/support-assistant/internal/service"
)

// fakeLLM answers classification prompts with classify and everything else
// with compose. compose defaults to echoing the last prompt message.
type fakeLLM struct {
	mu       sync.Mutex
	classify func(req llm.Request) (*llm.Response, error)
	compose  func(req llm.Request) (*llm.Response, error)
	requests []llm.Request
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if isClassification(req) {
		if f.classify == nil {
			return reply(`{"intent": "other", "summary": "chit chat", "ticket_id": null}`), nil
		}
		return f.classify(req)
	}
	if f.compose == nil {
		return reply(req.Messages[len(req.Messages)-1].Content), nil
	}
	return f.compose(req)
}

func (f *fakeLLM) composeRequests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []llm.Request
	for _, r := range f.requests {
		if !isClassification(r) {
			out = append(out, r)
		}
	}
	return out
}

func isClassification(req llm.Request) bool {
	return len(req.Messages) > 0 && strings.Contains(req.Messages[0].Content, "Analyze this customer service message")
}

func reply(content string) *llm.Response {
	return &llm.Response{Role: llm.RoleAssistant, Content: content, Model: "fake"}
}

func classifyWith(content string) func(llm.Request) (*llm.Response, error) {
	return func(llm.Request) (*llm.Response, error) { return reply(content), nil }
}

func templates(t *testing.T) (classify, respond *prompt.Template) {
	t.Helper()
	catalog, err := prompt.Default()
	if err != nil {
		t.Fatalf("prompt catalog: %v", err)
	}
	classify, err = catalog.Get("classify_request_v1")
	if err != nil {
		t.Fatalf("classify template: %v", err)
	}
	respond, err = catalog.Get("write_response_prompt_v2")
	if err != nil {
		t.Fatalf("response template: %v", err)
	}
	return classify, respond
}

func newClassifier(t *testing.T, completer llm.Completer, structured bool) *service.IntentClassifier {
	classify, _ := templates(t)
	return service.NewIntentClassifier(service.ClassifierDependencies{
		Completer:        completer,
		Prompt:           classify,
		Model:            "gpt-4o",
		Temperature:      0.1,
		StructuredOutput: structured,
		Logger:           zap.NewNop(),
		Metrics:          observability.NewMetrics(),
	})
}

func newComposer(t *testing.T, completer llm.Completer, metrics *observability.Metrics) *service.ResponseComposer {
	_, respond := templates(t)
	return service.NewResponseComposer(service.ComposerDependencies{
		Completer:   completer,
		Prompt:      respond,
		Model:       "gpt-4o",
		Temperature: 0.2,
		Logger:      zap.NewNop(),
		Metrics:     metrics,
	})
}

type pipelineFixture struct {
	pipeline   *service.MessagePipeline
	store      repository.TicketStore
	llm        *fakeLLM
	metrics    *observability.Metrics
	dispatcher events.Dispatcher
}

func newPipeline(t *testing.T, store repository.TicketStore, fake *fakeLLM) pipelineFixture {
	t.Helper()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	resolver := service.NewTicketResolver(service.ResolverDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Metrics:    metrics,
	})
	pipeline := service.NewMessagePipeline(service.PipelineDependencies{
		Classifier: newClassifier(t, fake, true),
		Resolver:   resolver,
		Composer:   newComposer(t, fake, metrics),
		Logger:     zap.NewNop(),
		Metrics:    metrics,
	})
	return pipelineFixture{pipeline: pipeline, store: store, llm: fake, metrics: metrics, dispatcher: dispatcher}
}
