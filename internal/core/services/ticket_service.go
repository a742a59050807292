package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
	apperrors "github.com/autoassistgroup/helpdesk-backend/internal/core/errors"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/ports"
)

// TicketService implements ticket business logic. Every mutation persists
// the ticket, then publishes the corresponding realtime events through the
// broadcaster and queues email notifications for offline recipients.
type TicketService struct {
	ticketRepo  ports.TicketRepository
	userRepo    ports.UserRepository
	authz       ports.AuthorizationService
	broadcaster ports.EventBroadcaster
	notifier    ports.Notifier
	logger      *slog.Logger
	wg          sync.WaitGroup
}

var _ ports.TicketService = (*TicketService)(nil)

// NewTicketService creates a new ticket service
func NewTicketService(
	ticketRepo ports.TicketRepository,
	userRepo ports.UserRepository,
	authz ports.AuthorizationService,
	broadcaster ports.EventBroadcaster,
	notifier ports.Notifier,
	logger *slog.Logger,
) *TicketService {
	return &TicketService{
		ticketRepo:  ticketRepo,
		userRepo:    userRepo,
		authz:       authz,
		broadcaster: broadcaster,
		notifier:    notifier,
		logger:      logger,
	}
}

// Shutdown waits for in-flight notification deliveries to finish.
func (s *TicketService) Shutdown() {
	s.wg.Wait()
}

// CreateTicket creates a new ticket and announces it on the dashboard.
func (s *TicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	if err := s.requirePermission(ctx, params.RequesterID, PermTicketCreate); err != nil {
		return nil, err
	}

	requester, err := s.userRepo.GetByID(ctx, params.RequesterID)
	if err != nil {
		return nil, err
	}

	priority := params.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}

	ticket, err := domain.NewTicket(domain.TicketParams{
		Subject:     params.Subject,
		Body:        params.Body,
		Priority:    priority,
		RequesterID: params.RequesterID,
	})
	if err != nil {
		return nil, err
	}

	created, err := s.ticketRepo.Create(ctx, ticket)
	if err != nil {
		return nil, fmt.Errorf("creating ticket: %w", err)
	}

	s.publish(domain.NewTicketEvents(domain.TicketCreatedPayload{
		Ticket:        created,
		RequesterName: requester.FullName,
	}))

	s.logger.InfoContext(ctx, "ticket created",
		slog.Int64("ticket_id", created.ID),
		slog.String("requester_id", requester.ID.String()))

	return created, nil
}

// GetTicket returns a ticket the viewer is allowed to see. Members may
// only read their own tickets; staff may read any.
func (s *TicketService) GetTicket(ctx context.Context, ticketID int64, viewerID uuid.UUID) (*domain.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeView(ctx, ticket, viewerID); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ListTickets returns tickets visible to the viewer. Staff see the full
// queue; members see only tickets they requested.
func (s *TicketService) ListTickets(ctx context.Context, params ports.ListTicketsParams) ([]*domain.Ticket, error) {
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	repoParams := ports.ListTicketsRepoParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}
	if params.Status != nil {
		repoParams.Status = pgtype.Text{String: *params.Status, Valid: true}
	}
	if params.Priority != nil {
		repoParams.Priority = pgtype.Text{String: *params.Priority, Valid: true}
	}

	canReadAll, err := s.authz.Can(ctx, params.ViewerID, PermTicketReadAll)
	if err != nil {
		return nil, err
	}
	if canReadAll {
		return s.ticketRepo.ListPaginated(ctx, repoParams)
	}

	repoParams.RequesterID = pgtype.UUID{Bytes: params.ViewerID, Valid: true}
	return s.ticketRepo.ListByRequesterPaginated(ctx, repoParams)
}

// UpdateStatus transitions a ticket to a new status and notifies the
// ticket room and the dashboard.
func (s *TicketService) UpdateStatus(ctx context.Context, params ports.UpdateStatusParams) (*domain.Ticket, error) {
	if err := s.requirePermission(ctx, params.ActorID, PermTicketUpdate); err != nil {
		return nil, err
	}

	ticket, actor, err := s.loadTicketAndActor(ctx, params.TicketID, params.ActorID)
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	if err := ticket.UpdateStatus(params.Status); err != nil {
		return nil, err
	}

	updated, err := s.ticketRepo.Update(ctx, ticket)
	if err != nil {
		return nil, fmt.Errorf("updating ticket status: %w", err)
	}

	s.publish(domain.StatusChangedEvents(domain.StatusChangedPayload{
		TicketID:    updated.ID,
		OldStatus:   oldStatus,
		NewStatus:   updated.Status,
		ChangedByID: actor.ID,
		ChangedBy:   actor.FullName,
	}))

	s.notifyAsync(ports.NotificationParams{
		RecipientUserID: updated.RequesterID,
		Subject:         fmt.Sprintf("Ticket #%d status changed", updated.ID),
		Message:         fmt.Sprintf("Your ticket is now %s.", updated.Status),
		TicketID:        updated.ID,
	})

	return updated, nil
}

// UpdatePriority changes a ticket's priority.
func (s *TicketService) UpdatePriority(ctx context.Context, params ports.UpdatePriorityParams) (*domain.Ticket, error) {
	if err := s.requirePermission(ctx, params.ActorID, PermTicketUpdate); err != nil {
		return nil, err
	}

	ticket, actor, err := s.loadTicketAndActor(ctx, params.TicketID, params.ActorID)
	if err != nil {
		return nil, err
	}

	oldPriority := ticket.Priority
	if err := ticket.UpdatePriority(params.Priority); err != nil {
		return nil, err
	}

	updated, err := s.ticketRepo.Update(ctx, ticket)
	if err != nil {
		return nil, fmt.Errorf("updating ticket priority: %w", err)
	}

	s.publish(domain.PriorityChangedEvents(domain.PriorityChangedPayload{
		TicketID:    updated.ID,
		OldPriority: oldPriority,
		NewPriority: updated.Priority,
		ChangedByID: actor.ID,
		ChangedBy:   actor.FullName,
	}))

	return updated, nil
}

// AssignTechnician assigns a staff user to the ticket.
func (s *TicketService) AssignTechnician(ctx context.Context, params ports.AssignTicketParams) (*domain.Ticket, error) {
	if err := s.requirePermission(ctx, params.ActorID, PermTicketAssign); err != nil {
		return nil, err
	}

	ticket, actor, err := s.loadTicketAndActor(ctx, params.TicketID, params.ActorID)
	if err != nil {
		return nil, err
	}

	technician, err := s.userRepo.GetByID(ctx, params.TechnicianID)
	if err != nil {
		return nil, err
	}
	if !technician.Role.IsStaff() {
		return nil, apperrors.ErrNotTechnician
	}

	if err := ticket.Assign(technician.ID); err != nil {
		return nil, err
	}

	updated, err := s.ticketRepo.Update(ctx, ticket)
	if err != nil {
		return nil, fmt.Errorf("assigning ticket: %w", err)
	}

	s.publish(domain.TechnicianAssignedEvents(domain.AssignmentPayload{
		TicketID:       updated.ID,
		Subject:        updated.Subject,
		TechnicianID:   technician.ID,
		TechnicianName: technician.FullName,
		AssignedByID:   actor.ID,
		AssignedByName: actor.FullName,
	}))

	s.notifyAsync(ports.NotificationParams{
		RecipientUserID: technician.ID,
		Subject:         fmt.Sprintf("Ticket #%d assigned to you", updated.ID),
		Message:         fmt.Sprintf("%s assigned you the ticket %q.", actor.FullName, updated.Subject),
		TicketID:        updated.ID,
	})

	return updated, nil
}

// TakeOver lets a staff member claim a ticket. The previous assignee, if
// any, is told their ticket was reassigned.
func (s *TicketService) TakeOver(ctx context.Context, params ports.TakeOverParams) (*domain.Ticket, error) {
	if err := s.requirePermission(ctx, params.ActorID, PermTicketAssign); err != nil {
		return nil, err
	}

	ticket, actor, err := s.loadTicketAndActor(ctx, params.TicketID, params.ActorID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() {
		return nil, apperrors.ErrNotTechnician
	}

	previous, err := ticket.TakeOver(actor.ID)
	if err != nil {
		return nil, err
	}

	updated, err := s.ticketRepo.Update(ctx, ticket)
	if err != nil {
		return nil, fmt.Errorf("taking over ticket: %w", err)
	}

	s.publish(domain.TicketTakenOverEvents(domain.TakeoverPayload{
		TicketID:           updated.ID,
		Subject:            updated.Subject,
		TakenByID:          actor.ID,
		TakenByName:        actor.FullName,
		PreviousAssigneeID: previous,
	}))

	if previous != nil {
		s.notifyAsync(ports.NotificationParams{
			RecipientUserID: *previous,
			Subject:         fmt.Sprintf("Ticket #%d reassigned", updated.ID),
			Message:         fmt.Sprintf("%s took over the ticket %q.", actor.FullName, updated.Subject),
			TicketID:        updated.ID,
		})
	}

	return updated, nil
}

// Forward hands the ticket to another staff member.
func (s *TicketService) Forward(ctx context.Context, params ports.ForwardTicketParams) (*domain.Ticket, error) {
	if err := s.requirePermission(ctx, params.ActorID, PermTicketForward); err != nil {
		return nil, err
	}

	ticket, actor, err := s.loadTicketAndActor(ctx, params.TicketID, params.ActorID)
	if err != nil {
		return nil, err
	}

	recipient, err := s.userRepo.GetByID(ctx, params.ToID)
	if err != nil {
		return nil, err
	}
	if !recipient.Role.IsStaff() {
		return nil, apperrors.ErrNotTechnician
	}

	if err := ticket.Forward(recipient.ID); err != nil {
		return nil, err
	}

	updated, err := s.ticketRepo.Update(ctx, ticket)
	if err != nil {
		return nil, fmt.Errorf("forwarding ticket: %w", err)
	}

	s.publish(domain.TicketForwardedEvents(domain.ForwardPayload{
		TicketID: updated.ID,
		Subject:  updated.Subject,
		FromID:   actor.ID,
		FromName: actor.FullName,
		ToID:     recipient.ID,
		ToName:   recipient.FullName,
		Note:     params.Note,
	}))

	s.notifyAsync(ports.NotificationParams{
		RecipientUserID: recipient.ID,
		Subject:         fmt.Sprintf("Ticket #%d forwarded to you", updated.ID),
		Message:         fmt.Sprintf("%s forwarded you the ticket %q.", actor.FullName, updated.Subject),
		TicketID:        updated.ID,
	})

	return updated, nil
}

// ReferToDirector escalates the ticket to the technical director. The
// director is resolved by role; when several exist the first is picked.
func (s *TicketService) ReferToDirector(ctx context.Context, params ports.ReferToDirectorParams) (*domain.Ticket, error) {
	if err := s.requirePermission(ctx, params.ActorID, PermTicketForward); err != nil {
		return nil, err
	}

	ticket, actor, err := s.loadTicketAndActor(ctx, params.TicketID, params.ActorID)
	if err != nil {
		return nil, err
	}

	directors, err := s.userRepo.ListByRole(ctx, actor.OrganizationID, domain.RoleTechnicalDirector)
	if err != nil {
		return nil, err
	}
	if len(directors) == 0 {
		return nil, apperrors.ErrNoDirector
	}
	director := directors[0]

	if err := ticket.Forward(director.ID); err != nil {
		return nil, err
	}

	updated, err := s.ticketRepo.Update(ctx, ticket)
	if err != nil {
		return nil, fmt.Errorf("referring ticket: %w", err)
	}

	s.publish(domain.DirectorReferralEvents(domain.ReferralPayload{
		TicketID:       updated.ID,
		Subject:        updated.Subject,
		ReferredByID:   actor.ID,
		ReferredByName: actor.FullName,
		DirectorID:     &director.ID,
	}))

	s.notifyAsync(ports.NotificationParams{
		RecipientUserID: director.ID,
		Subject:         fmt.Sprintf("Ticket #%d referred to you", updated.ID),
		Message:         fmt.Sprintf("%s referred the ticket %q to you.", actor.FullName, updated.Subject),
		TicketID:        updated.ID,
	})

	return updated, nil
}

// SetBookmark toggles the important flag on a ticket.
func (s *TicketService) SetBookmark(ctx context.Context, params ports.SetBookmarkParams) (*domain.Ticket, error) {
	if err := s.requirePermission(ctx, params.ActorID, PermTicketBookmark); err != nil {
		return nil, err
	}

	ticket, err := s.ticketRepo.GetByID(ctx, params.TicketID)
	if err != nil {
		return nil, err
	}

	ticket.SetImportant(params.Important)

	updated, err := s.ticketRepo.Update(ctx, ticket)
	if err != nil {
		return nil, fmt.Errorf("bookmarking ticket: %w", err)
	}

	s.publish(domain.BookmarkChangedEvents(updated.ID, updated.Important, params.ActorID))

	return updated, nil
}

// loadTicketAndActor fetches the ticket and the acting user in one place
// since every mutation needs both.
func (s *TicketService) loadTicketAndActor(ctx context.Context, ticketID int64, actorID uuid.UUID) (*domain.Ticket, *domain.User, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, actor, nil
}

func (s *TicketService) authorizeView(ctx context.Context, ticket *domain.Ticket, viewerID uuid.UUID) error {
	if ticket.IsOwnedBy(viewerID) {
		return nil
	}
	canReadAll, err := s.authz.Can(ctx, viewerID, PermTicketReadAll)
	if err != nil {
		return err
	}
	if !canReadAll {
		return apperrors.NewForbiddenError("you do not have access to this ticket")
	}
	return nil
}

func (s *TicketService) requirePermission(ctx context.Context, userID uuid.UUID, permission string) error {
	allowed, err := s.authz.Can(ctx, userID, permission)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.NewForbiddenError("you do not have permission to perform this action")
	}
	return nil
}

// publish pushes events to the broadcaster synchronously so callers
// observe a consistent room state before the HTTP response returns.
func (s *TicketService) publish(events []domain.TicketEvent) {
	for _, event := range events {
		delivered := s.broadcaster.Publish(event)
		s.logger.Debug("event published",
			slog.String("event", string(event.Kind)),
			slog.Int("delivered", delivered))
	}
}

// notifyAsync queues an email notification without blocking the request.
func (s *TicketService) notifyAsync(params ports.NotificationParams) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.notifier.Notify(context.Background(), params)
	}()
}
