package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/support-assistant/internal/domain"
)

const cacheKeyPrefix = "support-assistant:ticket:"

type cachedTicketStore struct {
	TicketStore
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedTicketStore puts a Redis read-through cache in front of FindTicket.
// Tickets never change after creation, so entries only expire by TTL. When
// client is nil the inner store is returned unchanged.
func NewCachedTicketStore(inner TicketStore, client *redis.Client, ttl time.Duration, logger *zap.Logger) TicketStore {
	if client == nil {
		return inner
	}
	return &cachedTicketStore{TicketStore: inner, client: client, ttl: ttl, logger: logger}
}

// cacheKey scopes entries by owner. The username is length-prefixed so no
// (username, ticket id) pair can spell another pair's key.
func cacheKey(ticketID, username string) string {
	return fmt.Sprintf("%s%d:%s:%s", cacheKeyPrefix, len(username), username, ticketID)
}

func (s *cachedTicketStore) CreateTicket(ctx context.Context, ticket *domain.Ticket) error {
	if err := s.TicketStore.CreateTicket(ctx, ticket); err != nil {
		return err
	}
	s.put(ctx, ticket)
	return nil
}

func (s *cachedTicketStore) FindTicket(ctx context.Context, ticketID, username string) (*domain.Ticket, error) {
	if !domain.IsTicketID(ticketID) {
		return nil, ErrTicketNotFound
	}
	key := cacheKey(ticketID, username)
	raw, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var ticket domain.Ticket
		if err := json.Unmarshal(raw, &ticket); err != nil {
			s.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
			break
		}
		if ticket.Username == username && ticket.TicketID == ticketID {
			return &ticket, nil
		}
		s.logger.Warn("discarding cache entry for another owner", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		s.logger.Warn("ticket cache read failed", zap.String("key", key), zap.Error(err))
	}

	ticket, err := s.TicketStore.FindTicket(ctx, ticketID, username)
	if err != nil {
		return nil, err
	}
	s.put(ctx, ticket)
	return ticket, nil
}

func (s *cachedTicketStore) put(ctx context.Context, ticket *domain.Ticket) {
	raw, err := json.Marshal(ticket)
	if err != nil {
		return
	}
	key := cacheKey(ticket.TicketID, ticket.Username)
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("ticket cache write failed", zap.String("key", key), zap.Error(err))
	}
}
