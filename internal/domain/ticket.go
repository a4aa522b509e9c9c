package domain

import (
	"regexp"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// Valid reports whether the status is one the store accepts.
func (s TicketStatus) Valid() bool {
	return s == TicketStatusOpen || s == TicketStatusClosed
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// Valid reports whether the priority is one the store accepts.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// TicketIDLength is the fixed length of a ticket identifier.
const TicketIDLength = 5

var ticketIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]{5}$`)

// IsTicketID reports whether s has the shape of a ticket identifier.
func IsTicketID(s string) bool {
	return ticketIDPattern.MatchString(s)
}

// Ticket is a support request filed on behalf of a user.
type Ticket struct {
	TicketID    string         `json:"ticket_id"`
	Username    string         `json:"username"`
	Status      TicketStatus   `json:"status"`
	Priority    TicketPriority `json:"priority"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
