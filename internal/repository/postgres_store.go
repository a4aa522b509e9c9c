package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-assistant/internal/domain"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type pgTicketStore struct {
	pool *pgxpool.Pool
	opts storeOptions
}

// NewPostgresTicketStore returns a TicketStore backed by a pgx pool.
func NewPostgresTicketStore(pool *pgxpool.Pool, opts ...StoreOption) TicketStore {
	return &pgTicketStore{pool: pool, opts: buildOptions(opts)}
}

func (s *pgTicketStore) EnsureUser(ctx context.Context, username string) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	const query = `INSERT INTO users (username) VALUES ($1) ON CONFLICT (username) DO NOTHING`
	_, err := s.pool.Exec(ctx, query, username)
	return err
}

func (s *pgTicketStore) CreateTicket(ctx context.Context, ticket *domain.Ticket) error {
	if err := prepareTicket(ticket, s.opts.now); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var userExists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username=$1)`, ticket.Username).Scan(&userExists); err != nil {
		return err
	}
	if !userExists {
		return ErrUserMissing
	}

	const query = `
        INSERT INTO tickets (ticket_id, username, status, description, priority, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	if _, err := tx.Exec(ctx, query,
		ticket.TicketID,
		ticket.Username,
		ticket.Status,
		ticket.Description,
		ticket.Priority,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return ErrTicketExists
			case pgForeignKeyViolation:
				return ErrUserMissing
			}
		}
		return err
	}
	return tx.Commit(ctx)
}

func (s *pgTicketStore) FindTicket(ctx context.Context, ticketID, username string) (*domain.Ticket, error) {
	const query = `
        SELECT ticket_id, username, status, description, priority, created_at, updated_at
        FROM tickets WHERE ticket_id=$1 AND username=$2`
	var ticket domain.Ticket
	if err := s.pool.QueryRow(ctx, query, ticketID, username).Scan(
		&ticket.TicketID,
		&ticket.Username,
		&ticket.Status,
		&ticket.Description,
		&ticket.Priority,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	ticket.CreatedAt = ticket.CreatedAt.UTC()
	ticket.UpdatedAt = ticket.UpdatedAt.UTC()
	return &ticket, nil
}

func (s *pgTicketStore) ListTickets(ctx context.Context, username string, limit int) ([]domain.Ticket, error) {
	query := `
        SELECT ticket_id, username, status, description, priority, created_at, updated_at
        FROM tickets WHERE username=$1 ORDER BY created_at DESC`
	args := []any{username}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (s *pgTicketStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.TicketID,
			&ticket.Username,
			&ticket.Status,
			&ticket.Description,
			&ticket.Priority,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		ticket.CreatedAt = ticket.CreatedAt.UTC()
		ticket.UpdatedAt = ticket.UpdatedAt.UTC()
		result = append(result, ticket)
	}
	return result, rows.Err()
}
