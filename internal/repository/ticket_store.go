package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/support-assistant/internal/domain"
)

var (
	// ErrTicketNotFound is returned when no ticket matches the (ticket id, username) pair.
	// A ticket owned by somebody else is reported the same way.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrTicketExists is returned when the ticket id is already taken.
	ErrTicketExists = errors.New("ticket id already exists")
	// ErrUserMissing is returned when a ticket names a user that has not been ensured.
	ErrUserMissing = errors.New("ticket owner does not exist")
	// ErrInvalidTicket is returned for tickets that violate the store's constraints.
	ErrInvalidTicket = errors.New("invalid ticket")
)

// TicketStore is the durable record of users and their tickets.
type TicketStore interface {
	// EnsureUser inserts the user unless it already exists.
	EnsureUser(ctx context.Context, username string) error
	// CreateTicket inserts a new ticket. Zero timestamps are filled in by the store.
	CreateTicket(ctx context.Context, ticket *domain.Ticket) error
	// FindTicket returns the ticket only when it belongs to username.
	FindTicket(ctx context.Context, ticketID, username string) (*domain.Ticket, error)
	// ListTickets returns the user's tickets, newest first. limit <= 0 returns all.
	ListTickets(ctx context.Context, username string, limit int) ([]domain.Ticket, error)
	// Ping checks connectivity to the backing database.
	Ping(ctx context.Context) error
}

// StoreOption customizes a store implementation.
type StoreOption func(*storeOptions)

type storeOptions struct {
	now func() time.Time
}

// WithClock overrides the time source used for created_at/updated_at.
func WithClock(now func() time.Time) StoreOption {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []StoreOption) storeOptions {
	o := storeOptions{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func validateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username required", ErrInvalidTicket)
	}
	return nil
}

// prepareTicket validates the ticket and stamps missing timestamps.
func prepareTicket(ticket *domain.Ticket, now func() time.Time) error {
	if ticket == nil {
		return fmt.Errorf("%w: nil ticket", ErrInvalidTicket)
	}
	if !domain.IsTicketID(ticket.TicketID) {
		return fmt.Errorf("%w: ticket id %q", ErrInvalidTicket, ticket.TicketID)
	}
	if err := validateUsername(ticket.Username); err != nil {
		return err
	}
	if !ticket.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidTicket, ticket.Status)
	}
	if !ticket.Priority.Valid() {
		return fmt.Errorf("%w: priority %q", ErrInvalidTicket, ticket.Priority)
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now()
	}
	if ticket.UpdatedAt.IsZero() {
		ticket.UpdatedAt = ticket.CreatedAt
	}
	return nil
}
