package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spec-kit/support-assistant/internal/domain"
	"github.com/spec-kit/support-assistant/internal/llm"
	"github.com/spec-kit/support-assistant/internal/service"
	"github.com/spec-kit/support-assistant/internal/testutil"
)

func TestPipeline_LookupUnknownTicket(t *testing.T) {
	fake := &fakeLLM{classify: classifyWith(`{"intent": "ticket_info", "summary": "wants status of ticket 61e4e", "ticket_id": "61e4e"}`)}
	fx := newPipeline(t, testutil.OpenStore(t, "pipeline_lookup"), fake)

	got := fx.pipeline.Process(context.Background(), "can you check on the issue - my id is 61e4e", "alice")
	if got.Classification.Intent != domain.IntentTicketInfo {
		t.Fatalf("intent = %q", got.Classification.Intent)
	}
	if len(got.Evidence) != 1 || !strings.Contains(got.Evidence[0].Content, "Ticket #61e4e not found") {
		t.Fatalf("evidence = %+v", got.Evidence)
	}
	if !strings.Contains(got.Reply, "**Ticket Information:**") {
		t.Errorf("reply prompt lacks ticket context:\n%s", got.Reply)
	}
}

func TestPipeline_CreatesTicket(t *testing.T) {
	fake := &fakeLLM{classify: classifyWith(`{"intent": "ticket_request", "summary": "User is locked out of their account", "ticket_id": null}`)}
	fx := newPipeline(t, testutil.OpenStore(t, "pipeline_create"), fake)
	ctx := context.Background()

	got := fx.pipeline.Process(ctx, "I'm locked out of my account", "alice")
	if got.Classification.Intent != domain.IntentTicketRequest {
		t.Fatalf("intent = %q", got.Classification.Intent)
	}
	if !got.TicketID.Valid || !generatedID.MatchString(got.TicketID.String) {
		t.Fatalf("ticket id = %+v", got.TicketID)
	}
	if !strings.Contains(got.Evidence[1].Content, got.TicketID.String) {
		t.Fatalf("evidence does not carry the new id: %+v", got.Evidence)
	}

	ticket, err := fx.store.FindTicket(ctx, got.TicketID.String, "alice")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if ticket.Status != domain.TicketStatusOpen || ticket.Priority != domain.TicketPriorityMedium {
		t.Errorf("ticket = %+v", ticket)
	}
	if ticket.Description != "User is locked out of their account" {
		t.Errorf("description = %q", ticket.Description)
	}
	if !strings.Contains(got.Reply, "Ticket ID: "+got.TicketID.String) {
		t.Errorf("reply prompt lacks new ticket id:\n%s", got.Reply)
	}
}

func TestPipeline_SmallTalk(t *testing.T) {
	fake := &fakeLLM{classify: classifyWith(`{"intent": "other", "summary": "greeting", "ticket_id": null}`)}
	fx := newPipeline(t, testutil.OpenStore(t, "pipeline_other"), fake)

	got := fx.pipeline.Process(context.Background(), "hi there", "")
	if got.Classification.Intent != domain.IntentOther {
		t.Fatalf("intent = %q", got.Classification.Intent)
	}
	if len(got.Evidence) != 0 {
		t.Fatalf("evidence = %+v", got.Evidence)
	}
	if !strings.Contains(got.Reply, "- Respond naturally and helpfully") {
		t.Errorf("conversational framing missing:\n%s", got.Reply)
	}
	tickets, err := fx.store.ListTickets(context.Background(), domain.DefaultUsername, 0)
	if err != nil || len(tickets) != 0 {
		t.Fatalf("small talk must not file tickets: %+v %v", tickets, err)
	}
	snap := fx.metrics.Snapshot()
	if snap.Messages != 1 || snap.Intents["other"] != 1 {
		t.Errorf("metrics = %+v", snap)
	}
}

func TestPipeline_AlwaysReplies(t *testing.T) {
	down := func(llm.Request) (*llm.Response, error) { return nil, errors.New("service unavailable") }
	fake := &fakeLLM{classify: down, compose: down}
	fx := newPipeline(t, testutil.OpenStore(t, "pipeline_down"), fake)

	if got := fx.pipeline.Handle(context.Background(), "hello?", "alice"); got != service.FallbackReply {
		t.Fatalf("reply = %q", got)
	}
}
