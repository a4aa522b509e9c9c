package domain

import (
	"strings"

	"github.com/guregu/null/v5"
)

// Intent is the category a chat message is classified into.
type Intent string

const (
	IntentTicketInfo    Intent = "ticket_info"
	IntentTicketRequest Intent = "ticket_request"
	IntentOther         Intent = "other"
)

// ParseIntent maps free text to a known intent, defaulting to IntentOther.
func ParseIntent(s string) Intent {
	switch intent := Intent(strings.ToLower(strings.TrimSpace(s))); intent {
	case IntentTicketInfo, IntentTicketRequest:
		return intent
	}
	return IntentOther
}

// Classification is the structured judgement produced for a message.
type Classification struct {
	Intent   Intent      `json:"intent"`
	Summary  string      `json:"summary"`
	TicketID null.String `json:"ticket_id"`
}

// Evidence is one fact handed from ticket resolution to response composition.
type Evidence struct {
	Content string `json:"page_content"`
	Type    string `json:"type"`
	Source  string `json:"source"`
}

// EvidenceFromLines wraps plain lines as database-sourced text evidence.
func EvidenceFromLines(lines ...string) []Evidence {
	docs := make([]Evidence, 0, len(lines))
	for _, line := range lines {
		docs = append(docs, Evidence{Content: line, Type: "text", Source: "database"})
	}
	return docs
}
