package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/spec-kit/support-assistant/internal/domain"
)

// UserRecord maps the users table.
type UserRecord struct {
	Username string         `gorm:"primaryKey;size:64"`
	Tickets  []TicketRecord `gorm:"foreignKey:Username;references:Username;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

// TableName pins the table name.
func (UserRecord) TableName() string { return "users" }

// TicketRecord maps the tickets table.
type TicketRecord struct {
	TicketID    string    `gorm:"primaryKey;size:16"`
	Username    string    `gorm:"size:64;not null;index:idx_tickets_username"`
	Status      string    `gorm:"size:16;not null;check:chk_tickets_status,status IN ('open','closed')"`
	Priority    string    `gorm:"size:16;not null;check:chk_tickets_priority,priority IN ('low','medium','high')"`
	Description string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName pins the table name.
func (TicketRecord) TableName() string { return "tickets" }

// GormModels lists the models AutoMigrate must create.
func GormModels() []any {
	return []any{&UserRecord{}, &TicketRecord{}}
}

type gormTicketStore struct {
	db   *gorm.DB
	opts storeOptions
}

// NewGormTicketStore returns a TicketStore backed by SQLite or MySQL through gorm.
func NewGormTicketStore(db *gorm.DB, opts ...StoreOption) TicketStore {
	return &gormTicketStore{db: db, opts: buildOptions(opts)}
}

func (s *gormTicketStore) EnsureUser(ctx context.Context, username string) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&UserRecord{Username: username}).Error
}

func (s *gormTicketStore) CreateTicket(ctx context.Context, ticket *domain.Ticket) error {
	if err := prepareTicket(ticket, s.opts.now); err != nil {
		return err
	}
	record := toTicketRecord(ticket)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var users int64
		if err := tx.Model(&UserRecord{}).Where("username = ?", ticket.Username).Count(&users).Error; err != nil {
			return err
		}
		if users == 0 {
			return ErrUserMissing
		}

		var existing int64
		if err := tx.Model(&TicketRecord{}).Where("ticket_id = ?", ticket.TicketID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrTicketExists
		}

		if err := tx.Omit(clause.Associations).Create(&record).Error; err != nil {
			switch {
			case errors.Is(err, gorm.ErrDuplicatedKey):
				return ErrTicketExists
			case errors.Is(err, gorm.ErrForeignKeyViolated):
				return ErrUserMissing
			}
			return err
		}
		return nil
	})
}

func (s *gormTicketStore) FindTicket(ctx context.Context, ticketID, username string) (*domain.Ticket, error) {
	var record TicketRecord
	err := s.db.WithContext(ctx).
		Where("ticket_id = ? AND username = ?", ticketID, username).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	ticket := record.toDomain()
	return &ticket, nil
}

func (s *gormTicketStore) ListTickets(ctx context.Context, username string, limit int) ([]domain.Ticket, error) {
	query := s.db.WithContext(ctx).
		Where("username = ?", username).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []TicketRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	tickets := make([]domain.Ticket, 0, len(records))
	for i := range records {
		tickets = append(tickets, records[i].toDomain())
	}
	return tickets, nil
}

func (s *gormTicketStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func toTicketRecord(ticket *domain.Ticket) TicketRecord {
	return TicketRecord{
		TicketID:    ticket.TicketID,
		Username:    ticket.Username,
		Status:      string(ticket.Status),
		Priority:    string(ticket.Priority),
		Description: ticket.Description,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

func (r TicketRecord) toDomain() domain.Ticket {
	return domain.Ticket{
		TicketID:    r.TicketID,
		Username:    r.Username,
		Status:      domain.TicketStatus(r.Status),
		Priority:    domain.TicketPriority(r.Priority),
		Description: r.Description,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}
