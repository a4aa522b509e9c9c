package service

import (
	"context"
	"errors"

	"github.com/spec-kit/support-assistant/internal/domain"
	"github.com/spec-kit/support-assistant/internal/repository"
	apperrors "github.com/spec-kit/support-assistant/pkg/util"
)

// TicketService serves read-only ticket queries for the HTTP surface.
type TicketService struct {
	tickets repository.TicketStore
}

// TicketUserFilter describes end-user listing filters.
type TicketUserFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Limit      int
}

// NewTicketService constructs the service.
func NewTicketService(store repository.TicketStore) *TicketService {
	return &TicketService{tickets: store}
}

// ListUserTickets returns the user's tickets newest first.
func (s *TicketService) ListUserTickets(ctx context.Context, username string, filter TicketUserFilter) ([]domain.Ticket, error) {
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": st})
		}
	}
	for _, p := range filter.Priorities {
		if !p.Valid() {
			return nil, apperrors.NewValidationError("invalid priority filter", map[string]any{"priority": p})
		}
	}
	if filter.Limit < 0 {
		return nil, apperrors.NewValidationError("limit must not be negative", nil)
	}

	limit := filter.Limit
	if len(filter.Statuses) > 0 || len(filter.Priorities) > 0 {
		limit = 0
	}
	tickets, err := s.tickets.ListTickets(ctx, username, limit)
	if err != nil {
		return nil, mapStoreError(err)
	}

	out := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if !matchesStatus(t, filter.Statuses) || !matchesPriority(t, filter.Priorities) {
			continue
		}
		out = append(out, t)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// GetTicketForUser fetches a ticket ensuring ownership. Tickets owned by
// someone else are reported as not found.
func (s *TicketService) GetTicketForUser(ctx context.Context, username, ticketID string) (*domain.Ticket, error) {
	if !domain.IsTicketID(ticketID) {
		return nil, apperrors.NewValidationError("ticket id must be 5 alphanumeric characters", map[string]any{"ticket_id": ticketID})
	}
	ticket, err := s.tickets.FindTicket(ctx, ticketID, username)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return ticket, nil
}

func matchesStatus(t domain.Ticket, statuses []domain.TicketStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if t.Status == s {
			return true
		}
	}
	return false
}

func matchesPriority(t domain.Ticket, priorities []domain.TicketPriority) bool {
	if len(priorities) == 0 {
		return true
	}
	for _, p := range priorities {
		if t.Priority == p {
			return true
		}
	}
	return false
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, repository.ErrTicketNotFound):
		return apperrors.NewNotFound("ticket", nil)
	case errors.Is(err, repository.ErrInvalidTicket):
		return apperrors.NewValidationError(err.Error(), nil)
	case errors.Is(err, repository.ErrTicketExists):
		return apperrors.NewConflict(err.Error(), nil)
	}
	return apperrors.NewInternalError(err)
}
