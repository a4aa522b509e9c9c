package service_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/spec-kit/support-assistant/internal/domain"
	"github.com/spec-kit/support-assistant/internal/llm"
)

func TestClassify_ParsingTiers(t *testing.T) {
	tests := []struct {
		name        string
		message     string
		completion  string
		wantIntent  domain.Intent
		wantSummary string
		wantTicket  string
	}{
		{
			name:        "json in prose",
			message:     "can you check on the issue - my id is 61e4e",
			completion:  "Sure:\n{\"intent\": \"ticket_info\", \"summary\": \"asks about ticket\", \"ticket_id\": \"61e4e\"}\nDone.",
			wantIntent:  domain.IntentTicketInfo,
			wantSummary: "asks about ticket",
			wantTicket:  "61e4e",
		},
		{
			name:        "null id recovered from message",
			message:     "status of abc12 please",
			completion:  `{"intent": "ticket_info", "summary": "status request", "ticket_id": "null"}`,
			wantIntent:  domain.IntentTicketInfo,
			wantSummary: "status request",
			wantTicket:  "abc12",
		},
		{
			name:        "numeric id",
			message:     "what about 12345",
			completion:  `{"intent": "ticket_info", "summary": "s", "ticket_id": 12345}`,
			wantIntent:  domain.IntentTicketInfo,
			wantSummary: "s",
			wantTicket:  "12345",
		},
		{
			name:        "line by line",
			message:     "I'm locked out of my account",
			completion:  "\"intent\": \"ticket_request\",\n\"summary\": \"locked out of account\",\n\"ticket_id\": \"null\"",
			wantIntent:  domain.IntentTicketRequest,
			wantSummary: "locked out of account",
		},
		{
			name:        "malformed json falls back to lines",
			message:     "I'm locked out of my account",
			completion:  `{"intent": "ticket_request", "summary": oops}`,
			wantIntent:  domain.IntentTicketRequest,
			wantSummary: "I'm locked out of my account",
		},
		{
			name:        "unknown intent",
			message:     "I'm locked out",
			completion:  `{"intent": "complaint", "summary": "angry", "ticket_id": null}`,
			wantIntent:  domain.IntentOther,
			wantSummary: "angry",
		},
		{
			name:        "unparseable",
			message:     "good morning",
			completion:  "I cannot classify that.",
			wantIntent:  domain.IntentOther,
			wantSummary: "good morning",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeLLM{classify: classifyWith(tt.completion)}
			got := newClassifier(t, fake, false).Classify(context.Background(), tt.message)
			if got.Intent != tt.wantIntent {
				t.Errorf("intent = %q, want %q", got.Intent, tt.wantIntent)
			}
			if got.Summary != tt.wantSummary {
				t.Errorf("summary = %q, want %q", got.Summary, tt.wantSummary)
			}
			if got.TicketID.String != tt.wantTicket || got.TicketID.Valid != (tt.wantTicket != "") {
				t.Errorf("ticket id = %+v, want %q", got.TicketID, tt.wantTicket)
			}
		})
	}
}

func TestClassify_CompletionFailureDegrades(t *testing.T) {
	fake := &fakeLLM{classify: func(llm.Request) (*llm.Response, error) {
		return nil, errors.New("connection refused")
	}}
	message := strings.Repeat("x", 150) + " ref zz9zz"
	got := newClassifier(t, fake, true).Classify(context.Background(), message)
	if got.Intent != domain.IntentOther {
		t.Errorf("intent = %q", got.Intent)
	}
	if len(got.Summary) != 100 {
		t.Errorf("summary length = %d, want 100", len(got.Summary))
	}
	if got.TicketID.String != "zz9zz" {
		t.Errorf("ticket id = %+v, want regex recovery", got.TicketID)
	}
}

func TestClassify_StructuredOutput(t *testing.T) {
	fake := &fakeLLM{classify: classifyWith(`{"intent":"other","summary":"hello","ticket_id":"null"}`)}
	newClassifier(t, fake, true).Classify(context.Background(), "hello")
	if len(fake.requests) != 1 || fake.requests[0].Schema == nil {
		t.Fatalf("expected one structured request, got %+v", fake.requests)
	}
	if fake.requests[0].Temperature != 0.1 || fake.requests[0].Model != "gpt-4o" {
		t.Errorf("unexpected model settings: %+v", fake.requests[0])
	}
}

func TestClassify_StructuredOutputRejected(t *testing.T) {
	fake := &fakeLLM{}
	fake.classify = func(req llm.Request) (*llm.Response, error) {
		if req.Schema != nil {
			return nil, &llm.ProviderError{StatusCode: http.StatusBadRequest, Message: "response_format unsupported"}
		}
		return reply(`{"intent":"ticket_request","summary":"broken printer","ticket_id":null}`), nil
	}
	got := newClassifier(t, fake, true).Classify(context.Background(), "my printer is broken")
	if got.Intent != domain.IntentTicketRequest || got.Summary != "broken printer" {
		t.Fatalf("unexpected classification %+v", got)
	}
	if len(fake.requests) != 2 || fake.requests[1].Schema != nil {
		t.Fatalf("expected plain-text retry, got %d requests", len(fake.requests))
	}
}
