package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/guregu/null/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-assistant/internal/domain"
	"github.com/spec-kit/support-assistant/internal/llm"
	"github.com/spec-kit/support-assistant/internal/observability"
	"github.com/spec-kit/support-assistant/internal/prompt"
)

// FallbackReply is returned when no reply could be generated.
const FallbackReply = "I'm sorry, I'm having trouble responding right now. Please try again in a moment."

// ComposeInput carries everything the reply is written from.
type ComposeInput struct {
	Message  string
	Intent   domain.Intent
	Summary  string
	Evidence []domain.Evidence
	TicketID null.String
}

// Framing is the intent-specific context and tone handed to the prompt.
type Framing struct {
	ContextSections []string
	Guidelines      []string
}

// ContextText joins the sections one per line.
func (f Framing) ContextText() string {
	return strings.Join(f.ContextSections, "\n")
}

// GuidelinesText renders the guidelines as a bullet list.
func (f Framing) GuidelinesText() string {
	lines := make([]string, len(f.Guidelines))
	for i, g := range f.Guidelines {
		lines[i] = "- " + g
	}
	return strings.Join(lines, "\n")
}

// BuildFraming selects context sections and guidelines for the intent.
func BuildFraming(intent domain.Intent, evidence []domain.Evidence, ticketID null.String) Framing {
	var f Framing
	switch intent {
	case domain.IntentTicketInfo:
		if len(evidence) > 0 {
			docs := make([]string, len(evidence))
			for i, e := range evidence {
				docs[i] = "- " + e.Content
			}
			f.ContextSections = append(f.ContextSections, "**Ticket Information:**\n"+strings.Join(docs, "\n"))
			f.Guidelines = []string{
				"Present the ticket information clearly",
				"Be helpful and professional",
				"Offer additional assistance if needed",
			}
		} else {
			f.Guidelines = []string{
				"Acknowledge their ticket inquiry",
				"Let them know you're ready to help",
			}
		}
	case domain.IntentTicketRequest:
		if ticketID.Valid && ticketID.String != "" {
			f.ContextSections = append(f.ContextSections, fmt.Sprintf("**New Ticket Created:**\nTicket ID: %s", ticketID.String))
			f.Guidelines = []string{
				"Confirm the ticket has been created",
				"Provide the ticket ID for their reference",
				"Explain next steps or timeline",
			}
		} else {
			f.Guidelines = []string{
				"Acknowledge their ticket request",
				"Explain the ticket creation process",
			}
		}
	default:
		f.Guidelines = []string{
			"Respond naturally and helpfully",
			"Be conversational and friendly",
		}
	}
	return f
}

// ComposerDependencies bundles collaborators for the response composer.
type ComposerDependencies struct {
	Completer   llm.Completer
	Prompt      *prompt.Template
	Model       string
	Temperature float64
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// ResponseComposer writes the customer-facing reply.
type ResponseComposer struct {
	completer   llm.Completer
	prompt      *prompt.Template
	model       string
	temperature float64
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// NewResponseComposer constructs the composer.
func NewResponseComposer(deps ComposerDependencies) *ResponseComposer {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResponseComposer{
		completer:   deps.Completer,
		prompt:      deps.Prompt,
		model:       deps.Model,
		temperature: deps.Temperature,
		logger:      logger,
		metrics:     deps.Metrics,
	}
}

// Compose returns the completion text verbatim, or FallbackReply when the
// completion fails or comes back blank.
func (c *ResponseComposer) Compose(ctx context.Context, in ComposeInput) string {
	reply, err := c.compose(ctx, in)
	if err != nil {
		c.logger.Warn("response composition failed", zap.String("intent", string(in.Intent)), zap.Error(err))
		c.metrics.RecordStageFailure("compose")
		c.metrics.RecordFallback("apology_reply")
		return FallbackReply
	}
	return reply
}

func (c *ResponseComposer) compose(ctx context.Context, in ComposeInput) (string, error) {
	if c.completer == nil || c.prompt == nil {
		return "", errors.New("composer is not configured")
	}
	framing := BuildFraming(in.Intent, in.Evidence, in.TicketID)
	messages, err := c.prompt.Render(map[string]string{
		"message_content":     in.Message,
		"intent":              string(in.Intent),
		"summary":             in.Summary,
		"context_sections":    framing.ContextText(),
		"response_guidelines": framing.GuidelinesText(),
	})
	if err != nil {
		return "", err
	}
	resp, err := c.completer.Complete(ctx, llm.Request{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    messages,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", errors.New("empty completion")
	}
	return resp.Content, nil
}
