package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
)

// AuthService defines the port for authentication business logic.
type AuthService interface {
	Register(ctx context.Context, fullName, email, password string, orgID uuid.UUID) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
}

// AuthorizationService defines the port for checking user permissions.
type AuthorizationService interface {
	Can(ctx context.Context, userID uuid.UUID, permission string) (bool, error)
	GetPermissions(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// AdminService defines the port for admin-only operations.
type AdminService interface {
	ListUsers(ctx context.Context, actorID, orgID uuid.UUID) ([]*domain.User, error)
	UpdateUserRole(ctx context.Context, actorID, userID uuid.UUID, role domain.Role) error
	DashboardOverview(ctx context.Context, actorID, orgID uuid.UUID, days int) (*domain.DashboardOverview, error)
}

// CreateTicketParams defines the required input for creating a new ticket.
type CreateTicketParams struct {
	Subject     string
	Body        string
	Priority    domain.TicketPriority
	RequesterID uuid.UUID
}

// UpdateStatusParams defines the input for changing a ticket's status.
type UpdateStatusParams struct {
	TicketID int64
	Status   domain.TicketStatus
	ActorID  uuid.UUID
}

// UpdatePriorityParams defines the input for changing a ticket's priority.
type UpdatePriorityParams struct {
	TicketID int64
	Priority domain.TicketPriority
	ActorID  uuid.UUID
}

// AssignTicketParams defines the input for assigning a technician.
type AssignTicketParams struct {
	TicketID     int64
	TechnicianID uuid.UUID
	ActorID      uuid.UUID
}

// TakeOverParams defines the input for a technician taking over a ticket.
type TakeOverParams struct {
	TicketID int64
	ActorID  uuid.UUID
}

// ForwardTicketParams defines the input for forwarding a ticket.
type ForwardTicketParams struct {
	TicketID int64
	ToID     uuid.UUID
	ActorID  uuid.UUID
	Note     string
}

// ReferToDirectorParams defines the input for escalating a ticket to the
// technical director.
type ReferToDirectorParams struct {
	TicketID int64
	ActorID  uuid.UUID
}

// SetBookmarkParams defines the input for toggling a ticket's importance.
type SetBookmarkParams struct {
	TicketID  int64
	Important bool
	ActorID   uuid.UUID
}

// CreateReplyParams defines the input for posting a reply.
type CreateReplyParams struct {
	TicketID int64
	ActorID  uuid.UUID
	Body     string
	Internal bool
}

// ListRepliesParams defines the input for retrieving a ticket's replies.
type ListRepliesParams struct {
	TicketID int64
	ActorID  uuid.UUID
}

// ListTicketsParams defines the input for listing tickets.
type ListTicketsParams struct {
	ViewerID uuid.UUID
	Limit    int
	Offset   int
	Status   *string
	Priority *string
}

// NotificationParams defines the input for sending a notification.
type NotificationParams struct {
	RecipientUserID uuid.UUID
	Subject         string
	Message         string
	TicketID        int64
}

// TicketService defines the core business operations for managing tickets.
type TicketService interface {
	CreateTicket(ctx context.Context, params CreateTicketParams) (*domain.Ticket, error)
	GetTicket(ctx context.Context, ticketID int64, viewerID uuid.UUID) (*domain.Ticket, error)
	ListTickets(ctx context.Context, params ListTicketsParams) ([]*domain.Ticket, error)
	UpdateStatus(ctx context.Context, params UpdateStatusParams) (*domain.Ticket, error)
	UpdatePriority(ctx context.Context, params UpdatePriorityParams) (*domain.Ticket, error)
	AssignTechnician(ctx context.Context, params AssignTicketParams) (*domain.Ticket, error)
	TakeOver(ctx context.Context, params TakeOverParams) (*domain.Ticket, error)
	Forward(ctx context.Context, params ForwardTicketParams) (*domain.Ticket, error)
	ReferToDirector(ctx context.Context, params ReferToDirectorParams) (*domain.Ticket, error)
	SetBookmark(ctx context.Context, params SetBookmarkParams) (*domain.Ticket, error)
	Shutdown()
}

// ReplyService defines the port for reply-related business logic.
type ReplyService interface {
	CreateReply(ctx context.Context, params CreateReplyParams) (*domain.Reply, error)
	ListReplies(ctx context.Context, params ListRepliesParams) ([]*domain.Reply, error)
}

// Notifier defines the port for sending asynchronous notifications.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}

// EventBroadcaster fans a ticket event out to every realtime session in
// the event's target rooms. Publish returns the number of sessions the
// event was delivered to; delivery is best-effort and never retried.
type EventBroadcaster interface {
	Publish(event domain.TicketEvent) int
}
