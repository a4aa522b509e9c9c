package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/support-assistant/internal/domain"
	"github.com/spec-kit/support-assistant/internal/repository"
	"github.com/spec-kit/support-assistant/internal/testutil"
)

func TestCachedStore_NilClientReturnsInner(t *testing.T) {
	inner := testutil.OpenStore(t, "cache_nil")
	if got := repository.NewCachedTicketStore(inner, nil, time.Minute, zap.NewNop()); got != inner {
		t.Fatal("nil redis client should leave the store undecorated")
	}
}

// An unreachable Redis must degrade to the inner store, never fail lookups.
func TestCachedStore_FallsThroughWhenRedisDown(t *testing.T) {
	inner := testutil.OpenStore(t, "cache_down")
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	store := repository.NewCachedTicketStore(inner, client, time.Minute, zap.NewNop())

	ctx := context.Background()
	if err := store.EnsureUser(ctx, "alice"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := store.CreateTicket(ctx, newTicket("c4ch3", "alice", "cached")); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.FindTicket(ctx, "c4ch3", "alice")
	if err != nil || got.Description != "cached" {
		t.Fatalf("find = %+v, %v", got, err)
	}
	if _, err := store.FindTicket(ctx, "c4ch3", "bob"); !errors.Is(err, repository.ErrTicketNotFound) {
		t.Fatalf("owner isolation through cache: %v", err)
	}
	tickets, err := store.ListTickets(ctx, "alice", 0)
	if err != nil || len(tickets) != 1 {
		t.Fatalf("list = %+v, %v", tickets, err)
	}
}

type countingStore struct {
	repository.TicketStore
	finds int
}

func (c *countingStore) FindTicket(ctx context.Context, ticketID, username string) (*domain.Ticket, error) {
	c.finds++
	return c.TicketStore.FindTicket(ctx, ticketID, username)
}

func newMiniredisStore(t *testing.T, name string) (*countingStore, repository.TicketStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	inner := &countingStore{TicketStore: testutil.OpenStore(t, name)}
	return inner, repository.NewCachedTicketStore(inner, client, time.Minute, zap.NewNop()), mr
}

func TestCachedStore_ServesHitsFromRedis(t *testing.T) {
	inner, store, mr := newMiniredisStore(t, "cache_hit")
	ctx := context.Background()

	if err := store.EnsureUser(ctx, "alice"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := store.CreateTicket(ctx, newTicket("h1t00", "alice", "warm on create")); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.FindTicket(ctx, "h1t00", "alice")
	if err != nil || got.Description != "warm on create" || got.Username != "alice" {
		t.Fatalf("find = %+v, %v", got, err)
	}
	if inner.finds != 0 {
		t.Fatalf("warm entry should be served from redis, inner finds = %d", inner.finds)
	}

	mr.FlushAll()
	if _, err := store.FindTicket(ctx, "h1t00", "alice"); err != nil {
		t.Fatalf("find after flush: %v", err)
	}
	if inner.finds != 1 {
		t.Fatalf("miss should reach the inner store once, got %d", inner.finds)
	}
	if keys := mr.Keys(); len(keys) != 1 {
		t.Fatalf("miss should refill the cache, keys = %v", keys)
	}
}

func TestCachedStore_OwnerIsolationOnHit(t *testing.T) {
	inner, store, _ := newMiniredisStore(t, "cache_isolation")
	ctx := context.Background()

	for _, u := range []string{"a:b", "a", "bob"} {
		if err := store.EnsureUser(ctx, u); err != nil {
			t.Fatalf("ensure %s: %v", u, err)
		}
	}
	if err := store.CreateTicket(ctx, newTicket("abc12", "a:b", "secret of a:b")); err != nil {
		t.Fatalf("create: %v", err)
	}

	tests := []struct {
		name     string
		ticketID string
		username string
	}{
		{name: "separator in requested id", ticketID: "b:abc12", username: "a"},
		{name: "other user same id", ticketID: "abc12", username: "bob"},
		{name: "owner prefix of username", ticketID: "abc12", username: "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.FindTicket(ctx, tt.ticketID, tt.username)
			if !errors.Is(err, repository.ErrTicketNotFound) {
				t.Fatalf("user %q reading %q: got %+v, %v", tt.username, tt.ticketID, got, err)
			}
		})
	}

	got, err := store.FindTicket(ctx, "abc12", "a:b")
	if err != nil || got.Description != "secret of a:b" {
		t.Fatalf("owner lookup = %+v, %v", got, err)
	}
	if inner.finds != 2 {
		t.Fatalf("only the two well-formed foreign lookups should reach the inner store, got %d", inner.finds)
	}
}
