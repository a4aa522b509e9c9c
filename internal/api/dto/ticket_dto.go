package dto

import (
	"time"

	"github.com/spec-kit/support-assistant/internal/domain"
)

// ChatRequest payload.
type ChatRequest struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// ChatResponse payload.
type ChatResponse struct {
	Reply    string        `json:"reply"`
	Intent   domain.Intent `json:"intent"`
	TicketID *string       `json:"ticket_id"`
}

// TicketResponse represents a ticket owned by the requesting user.
type TicketResponse struct {
	TicketID    string                `json:"ticket_id"`
	Username    string                `json:"username"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	Description string                `json:"description"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		TicketID:    t.TicketID,
		Username:    t.Username,
		Status:      t.Status,
		Priority:    t.Priority,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
