package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-assistant/internal/domain"
	"github.com/spec-kit/support-assistant/internal/events"
	"github.com/spec-kit/support-assistant/internal/observability"
	"github.com/spec-kit/support-assistant/internal/repository"
)

const (
	evidenceTimeLayout = "2006-01-02 15:04:05"

	askForTicketID    = "I understand you're asking about a past issue or ticket. Please provide your 5-character ticket ID so I can look up the details for you."
	lookupFailed      = "Error querying ticket information. Please try again later."
	creationFailed    = "Error creating ticket in database. Please try again or contact support."
	defaultIDAttempts = 3
)

// NewTicketID returns the first five hex characters of a random UUID.
func NewTicketID() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:3])[:domain.TicketIDLength]
}

// ResolverDependencies bundles collaborators for the ticket resolver.
type ResolverDependencies struct {
	Store      repository.TicketStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	// IDAttempts bounds ticket id generation on collisions. Zero means the default.
	IDAttempts int
	// NewID overrides ticket id generation.
	NewID func() string
}

// ResolveResult is the outcome of filing a new ticket.
type ResolveResult struct {
	TicketID null.String
	Evidence []domain.Evidence
	Success  bool
}

// TicketResolver looks up or files tickets and reports the outcome as evidence.
type TicketResolver struct {
	store      repository.TicketStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	attempts   int
	newID      func() string
}

// NewTicketResolver constructs the resolver.
func NewTicketResolver(deps ResolverDependencies) *TicketResolver {
	r := &TicketResolver{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		attempts:   deps.IDAttempts,
		newID:      deps.NewID,
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.attempts <= 0 {
		r.attempts = defaultIDAttempts
	}
	if r.newID == nil {
		r.newID = NewTicketID
	}
	return r
}

// ResolveInfo reports the user's ticket. Missing ids, unknown tickets and
// storage failures each become a single explanatory line.
func (r *TicketResolver) ResolveInfo(ctx context.Context, ticketID null.String, username string) []domain.Evidence {
	if !ticketID.Valid || strings.TrimSpace(ticketID.String) == "" {
		return domain.EvidenceFromLines(askForTicketID)
	}
	id := strings.TrimSpace(ticketID.String)

	ticket, err := r.store.FindTicket(ctx, id, username)
	switch {
	case errors.Is(err, repository.ErrTicketNotFound):
		return domain.EvidenceFromLines(
			fmt.Sprintf("Ticket #%s not found for user '%s'. Please check your ticket number and try again.", id, username))
	case err != nil:
		r.logger.Error("ticket lookup failed",
			zap.String("ticket_id", id),
			zap.String("username", username),
			zap.Error(err))
		r.metrics.RecordStageFailure("resolve_info")
		return domain.EvidenceFromLines(lookupFailed)
	}

	return domain.EvidenceFromLines(
		fmt.Sprintf("**Ticket #%s Status**", ticket.TicketID),
		"Status: "+titleCase(string(ticket.Status)),
		"Priority: "+titleCase(string(ticket.Priority)),
		"Description: "+ticket.Description,
		"Created: "+formatTimestamp(ticket.CreatedAt),
		"Last Updated: "+formatTimestamp(ticket.UpdatedAt),
	)
}

// ResolveRequest files an open, medium priority ticket described by summary.
func (r *TicketResolver) ResolveRequest(ctx context.Context, summary, username string) ResolveResult {
	failed := ResolveResult{Evidence: domain.EvidenceFromLines(creationFailed)}

	if err := r.store.EnsureUser(ctx, username); err != nil {
		r.logger.Error("ensure user failed", zap.String("username", username), zap.Error(err))
		r.metrics.RecordStageFailure("resolve_request")
		return failed
	}

	ticket, err := r.createWithFreshID(ctx, summary, username)
	if err != nil {
		r.logger.Error("ticket creation failed", zap.String("username", username), zap.Error(err))
		r.metrics.RecordStageFailure("resolve_request")
		return failed
	}

	r.publishCreated(ctx, ticket)
	return ResolveResult{
		TicketID: null.StringFrom(ticket.TicketID),
		Success:  true,
		Evidence: domain.EvidenceFromLines(
			"**New Ticket Created Successfully**",
			"Ticket ID: "+ticket.TicketID,
			"Status: "+titleCase(string(ticket.Status)),
			"Priority: "+titleCase(string(ticket.Priority)),
			"Description: "+ticket.Description,
			"Created for: "+ticket.Username,
		),
	}
}

func (r *TicketResolver) createWithFreshID(ctx context.Context, summary, username string) (*domain.Ticket, error) {
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		ticket := &domain.Ticket{
			TicketID:    r.newID(),
			Username:    username,
			Status:      domain.TicketStatusOpen,
			Priority:    domain.TicketPriorityMedium,
			Description: summary,
		}
		err = r.store.CreateTicket(ctx, ticket)
		if err == nil {
			return ticket, nil
		}
		if !errors.Is(err, repository.ErrTicketExists) {
			return nil, err
		}
		r.logger.Warn("ticket id collision",
			zap.String("ticket_id", ticket.TicketID),
			zap.Int("attempt", attempt))
	}
	return nil, fmt.Errorf("no free ticket id after %d attempts: %w", r.attempts, err)
}

func (r *TicketResolver) publishCreated(ctx context.Context, ticket *domain.Ticket) {
	if r.dispatcher == nil {
		return
	}
	event := events.NewEvent(events.EventTicketCreated, ticket.TicketID, ticket.Username, events.TicketCreatedPayload{
		Status:             ticket.Status,
		Priority:           ticket.Priority,
		DescriptionPreview: events.Preview(ticket.Description),
	})
	if err := r.dispatcher.Publish(ctx, event); err != nil {
		r.logger.Warn("publish ticket_created failed", zap.String("ticket_id", ticket.TicketID), zap.Error(err))
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(evidenceTimeLayout)
}
