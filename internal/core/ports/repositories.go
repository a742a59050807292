package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
)

// UserRepository defines persistence for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*domain.User, error)
	ListByRole(ctx context.Context, orgID uuid.UUID, role domain.Role) ([]*domain.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role domain.Role) error
}

// ListTicketsRepoParams holds the filter set the ticket list queries accept.
type ListTicketsRepoParams struct {
	Limit       int32
	Offset      int32
	Status      pgtype.Text
	Priority    pgtype.Text
	RequesterID pgtype.UUID
	AssigneeID  pgtype.UUID
}

// TicketRepository defines persistence for tickets.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	ListPaginated(ctx context.Context, params ListTicketsRepoParams) ([]*domain.Ticket, error)
	ListByRequesterPaginated(ctx context.Context, params ListTicketsRepoParams) ([]*domain.Ticket, error)
}

// ReplyRepository defines persistence for ticket replies.
type ReplyRepository interface {
	Create(ctx context.Context, reply *domain.Reply) (*domain.Reply, error)
	ListByTicketID(ctx context.Context, ticketID int64, includeInternal bool) ([]*domain.Reply, error)
}

// AuthorizationRepository defines persistence for RBAC lookups.
type AuthorizationRepository interface {
	GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error)
	AssignRole(ctx context.Context, userID uuid.UUID, role string) error
}

// AnalyticsRepository aggregates ticket figures for the dashboard.
type AnalyticsRepository interface {
	GetOverview(ctx context.Context, orgID uuid.UUID, days int) (*domain.DashboardOverview, error)
}
