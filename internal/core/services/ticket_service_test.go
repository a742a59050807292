package services_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
	apperrors "github.com/autoassistgroup/helpdesk-backend/internal/core/errors"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/mocks"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/ports"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/services"
)

type ticketServiceFixture struct {
	ticketRepo  *mocks.MockTicketRepository
	userRepo    *mocks.MockUserRepository
	authz       *mocks.MockAuthorizationService
	broadcaster *mocks.MockEventBroadcaster
	notifier    *mocks.MockNotifier
	svc         *services.TicketService
}

func newTicketServiceFixture() *ticketServiceFixture {
	f := &ticketServiceFixture{
		ticketRepo:  mocks.NewMockTicketRepository(),
		userRepo:    mocks.NewMockUserRepository(),
		authz:       mocks.NewMockAuthorizationService(),
		broadcaster: mocks.NewMockEventBroadcaster(),
		notifier:    mocks.NewMockNotifier(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = services.NewTicketService(f.ticketRepo, f.userRepo, f.authz, f.broadcaster, f.notifier, logger)
	return f
}

// expectPublish records every published event kind so tests can assert on
// the realtime fan-out without caring about payload timestamps.
func (f *ticketServiceFixture) expectPublish(kinds *[]domain.EventKind) {
	f.broadcaster.On("Publish", mock.AnythingOfType("domain.TicketEvent")).
		Run(func(args mock.Arguments) {
			event := args.Get(0).(domain.TicketEvent)
			*kinds = append(*kinds, event.Kind)
		}).
		Return(1)
}

func staffUser(role domain.Role) *domain.User {
	return &domain.User{
		ID:             uuid.New(),
		OrganizationID: uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		FullName:       "Staff User",
		Email:          "staff@example.com",
		Role:           role,
		IsActive:       true,
	}
}

func TestTicketService_CreateTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("success publishes new_ticket to dashboard", func(t *testing.T) {
		f := newTicketServiceFixture()
		requester := staffUser(domain.RoleMember)

		f.authz.On("Can", ctx, requester.ID, "tickets:create").Return(true, nil)
		f.userRepo.On("GetByID", ctx, requester.ID).Return(requester, nil)
		f.ticketRepo.On("Create", ctx, mock.AnythingOfType("*domain.Ticket")).
			Return(&domain.Ticket{
				ID:          1,
				Subject:     "Printer is down",
				Body:        "It shows a paper jam error",
				Priority:    domain.PriorityMedium,
				Status:      domain.StatusOpen,
				RequesterID: requester.ID,
			}, nil)

		var kinds []domain.EventKind
		f.expectPublish(&kinds)

		ticket, err := f.svc.CreateTicket(ctx, ports.CreateTicketParams{
			Subject:     "Printer is down",
			Body:        "It shows a paper jam error",
			RequesterID: requester.ID,
		})

		require.NoError(t, err)
		assert.Equal(t, int64(1), ticket.ID)
		assert.Equal(t, domain.StatusOpen, ticket.Status)
		assert.Equal(t, []domain.EventKind{domain.EventNewTicket}, kinds)

		f.authz.AssertExpectations(t)
		f.ticketRepo.AssertExpectations(t)
	})

	t.Run("defaults to medium priority", func(t *testing.T) {
		f := newTicketServiceFixture()
		requester := staffUser(domain.RoleMember)

		f.authz.On("Can", ctx, requester.ID, "tickets:create").Return(true, nil)
		f.userRepo.On("GetByID", ctx, requester.ID).Return(requester, nil)
		f.ticketRepo.On("Create", ctx, mock.MatchedBy(func(ticket *domain.Ticket) bool {
			return ticket.Priority == domain.PriorityMedium
		})).Return(&domain.Ticket{ID: 2, Priority: domain.PriorityMedium, RequesterID: requester.ID}, nil)
		f.broadcaster.On("Publish", mock.AnythingOfType("domain.TicketEvent")).Return(0)

		_, err := f.svc.CreateTicket(ctx, ports.CreateTicketParams{
			Subject:     "No priority given",
			Body:        "body",
			RequesterID: requester.ID,
		})

		require.NoError(t, err)
		f.ticketRepo.AssertExpectations(t)
	})

	t.Run("forbidden without permission", func(t *testing.T) {
		f := newTicketServiceFixture()
		requesterID := uuid.New()

		f.authz.On("Can", ctx, requesterID, "tickets:create").Return(false, nil)

		ticket, err := f.svc.CreateTicket(ctx, ports.CreateTicketParams{
			Subject:     "Nope",
			Body:        "body",
			RequesterID: requesterID,
		})

		assert.Nil(t, ticket)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 403, appErr.StatusCode)

		f.ticketRepo.AssertNotCalled(t, "Create")
		f.broadcaster.AssertNotCalled(t, "Publish")
	})
}

func TestTicketService_GetTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("owner can read own ticket", func(t *testing.T) {
		f := newTicketServiceFixture()
		ownerID := uuid.New()

		f.ticketRepo.On("GetByID", ctx, int64(7)).
			Return(&domain.Ticket{ID: 7, RequesterID: ownerID}, nil)

		ticket, err := f.svc.GetTicket(ctx, 7, ownerID)

		require.NoError(t, err)
		assert.Equal(t, int64(7), ticket.ID)
		f.authz.AssertNotCalled(t, "Can")
	})

	t.Run("staff can read any ticket", func(t *testing.T) {
		f := newTicketServiceFixture()
		viewerID := uuid.New()

		f.ticketRepo.On("GetByID", ctx, int64(7)).
			Return(&domain.Ticket{ID: 7, RequesterID: uuid.New()}, nil)
		f.authz.On("Can", ctx, viewerID, "tickets:read_all").Return(true, nil)

		_, err := f.svc.GetTicket(ctx, 7, viewerID)
		require.NoError(t, err)
	})

	t.Run("member cannot read another user's ticket", func(t *testing.T) {
		f := newTicketServiceFixture()
		viewerID := uuid.New()

		f.ticketRepo.On("GetByID", ctx, int64(7)).
			Return(&domain.Ticket{ID: 7, RequesterID: uuid.New()}, nil)
		f.authz.On("Can", ctx, viewerID, "tickets:read_all").Return(false, nil)

		ticket, err := f.svc.GetTicket(ctx, 7, viewerID)

		assert.Nil(t, ticket)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 403, appErr.StatusCode)
	})
}

func TestTicketService_ListTickets(t *testing.T) {
	ctx := context.Background()

	t.Run("staff see full queue", func(t *testing.T) {
		f := newTicketServiceFixture()
		viewerID := uuid.New()

		f.authz.On("Can", ctx, viewerID, "tickets:read_all").Return(true, nil)
		f.ticketRepo.On("ListPaginated", ctx, mock.AnythingOfType("ports.ListTicketsRepoParams")).
			Return([]*domain.Ticket{{ID: 1}, {ID: 2}}, nil)

		tickets, err := f.svc.ListTickets(ctx, ports.ListTicketsParams{ViewerID: viewerID, Limit: 50})

		require.NoError(t, err)
		assert.Len(t, tickets, 2)
		f.ticketRepo.AssertNotCalled(t, "ListByRequesterPaginated")
	})

	t.Run("members see only their own tickets", func(t *testing.T) {
		f := newTicketServiceFixture()
		viewerID := uuid.New()

		f.authz.On("Can", ctx, viewerID, "tickets:read_all").Return(false, nil)
		f.ticketRepo.On("ListByRequesterPaginated", ctx, mock.MatchedBy(func(params ports.ListTicketsRepoParams) bool {
			return params.RequesterID.Valid && params.RequesterID.Bytes == [16]byte(viewerID)
		})).Return([]*domain.Ticket{{ID: 3, RequesterID: viewerID}}, nil)

		tickets, err := f.svc.ListTickets(ctx, ports.ListTicketsParams{ViewerID: viewerID})

		require.NoError(t, err)
		assert.Len(t, tickets, 1)
		f.ticketRepo.AssertNotCalled(t, "ListPaginated")
	})

	t.Run("clamps out-of-range limits", func(t *testing.T) {
		f := newTicketServiceFixture()
		viewerID := uuid.New()

		f.authz.On("Can", ctx, viewerID, "tickets:read_all").Return(true, nil)
		f.ticketRepo.On("ListPaginated", ctx, mock.MatchedBy(func(params ports.ListTicketsRepoParams) bool {
			return params.Limit == 20 && params.Offset == 0
		})).Return([]*domain.Ticket{}, nil)

		_, err := f.svc.ListTickets(ctx, ports.ListTicketsParams{ViewerID: viewerID, Limit: 500, Offset: -3})
		require.NoError(t, err)
		f.ticketRepo.AssertExpectations(t)
	})
}

func TestTicketService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes status change and notifies requester", func(t *testing.T) {
		f := newTicketServiceFixture()
		actor := staffUser(domain.RoleTechnician)
		requesterID := uuid.New()

		f.authz.On("Can", ctx, actor.ID, "tickets:update").Return(true, nil)
		f.ticketRepo.On("GetByID", ctx, int64(5)).
			Return(&domain.Ticket{ID: 5, Status: domain.StatusOpen, RequesterID: requesterID}, nil)
		f.userRepo.On("GetByID", ctx, actor.ID).Return(actor, nil)
		f.ticketRepo.On("Update", ctx, mock.AnythingOfType("*domain.Ticket")).
			Return(&domain.Ticket{ID: 5, Status: domain.StatusInProgress, RequesterID: requesterID}, nil)

		var kinds []domain.EventKind
		f.expectPublish(&kinds)
		f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(params ports.NotificationParams) bool {
			return params.RecipientUserID == requesterID && params.TicketID == 5
		})).Return()

		ticket, err := f.svc.UpdateStatus(ctx, ports.UpdateStatusParams{
			TicketID: 5,
			Status:   domain.StatusInProgress,
			ActorID:  actor.ID,
		})
		f.svc.Shutdown()

		require.NoError(t, err)
		assert.Equal(t, domain.StatusInProgress, ticket.Status)
		assert.Equal(t, []domain.EventKind{domain.EventStatusChanged, domain.EventTicketUpdated}, kinds)
		f.notifier.AssertExpectations(t)
	})

	t.Run("rejects invalid transition", func(t *testing.T) {
		f := newTicketServiceFixture()
		actor := staffUser(domain.RoleTechnician)

		f.authz.On("Can", ctx, actor.ID, "tickets:update").Return(true, nil)
		f.ticketRepo.On("GetByID", ctx, int64(5)).
			Return(&domain.Ticket{ID: 5, Status: domain.StatusClosed}, nil)
		f.userRepo.On("GetByID", ctx, actor.ID).Return(actor, nil)

		ticket, err := f.svc.UpdateStatus(ctx, ports.UpdateStatusParams{
			TicketID: 5,
			Status:   domain.StatusOpen,
			ActorID:  actor.ID,
		})

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)
		f.ticketRepo.AssertNotCalled(t, "Update")
		f.broadcaster.AssertNotCalled(t, "Publish")
	})
}

func TestTicketService_AssignTechnician(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns staff and notifies them", func(t *testing.T) {
		f := newTicketServiceFixture()
		actor := staffUser(domain.RoleTechnicalDirector)
		technician := staffUser(domain.RoleTechnician)

		f.authz.On("Can", ctx, actor.ID, "tickets:assign").Return(true, nil)
		f.ticketRepo.On("GetByID", ctx, int64(9)).
			Return(&domain.Ticket{ID: 9, Status: domain.StatusOpen, Subject: "VPN broken"}, nil)
		f.userRepo.On("GetByID", ctx, actor.ID).Return(actor, nil)
		f.userRepo.On("GetByID", ctx, technician.ID).Return(technician, nil)
		f.ticketRepo.On("Update", ctx, mock.AnythingOfType("*domain.Ticket")).
			Return(&domain.Ticket{ID: 9, Status: domain.StatusInProgress, Subject: "VPN broken", AssigneeID: &technician.ID}, nil)

		var kinds []domain.EventKind
		f.expectPublish(&kinds)
		f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(params ports.NotificationParams) bool {
			return params.RecipientUserID == technician.ID
		})).Return()

		ticket, err := f.svc.AssignTechnician(ctx, ports.AssignTicketParams{
			TicketID:     9,
			TechnicianID: technician.ID,
			ActorID:      actor.ID,
		})
		f.svc.Shutdown()

		require.NoError(t, err)
		require.NotNil(t, ticket.AssigneeID)
		assert.Equal(t, technician.ID, *ticket.AssigneeID)
		assert.Equal(t, []domain.EventKind{domain.EventTechnicianAssigned}, kinds)
		f.notifier.AssertExpectations(t)
	})

	t.Run("rejects assigning a member", func(t *testing.T) {
		f := newTicketServiceFixture()
		actor := staffUser(domain.RoleTechnicalDirector)
		member := staffUser(domain.RoleMember)

		f.authz.On("Can", ctx, actor.ID, "tickets:assign").Return(true, nil)
		f.ticketRepo.On("GetByID", ctx, int64(9)).
			Return(&domain.Ticket{ID: 9, Status: domain.StatusOpen}, nil)
		f.userRepo.On("GetByID", ctx, actor.ID).Return(actor, nil)
		f.userRepo.On("GetByID", ctx, member.ID).Return(member, nil)

		ticket, err := f.svc.AssignTechnician(ctx, ports.AssignTicketParams{
			TicketID:     9,
			TechnicianID: member.ID,
			ActorID:      actor.ID,
		})

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrNotTechnician)
		f.ticketRepo.AssertNotCalled(t, "Update")
	})
}

func TestTicketService_TakeOver(t *testing.T) {
	ctx := context.Background()

	t.Run("notifies displaced assignee", func(t *testing.T) {
		f := newTicketServiceFixture()
		actor := staffUser(domain.RoleTechnician)
		previousID := uuid.New()

		f.authz.On("Can", ctx, actor.ID, "tickets:assign").Return(true, nil)
		f.ticketRepo.On("GetByID", ctx, int64(4)).
			Return(&domain.Ticket{ID: 4, Status: domain.StatusInProgress, Subject: "Laptop", AssigneeID: &previousID}, nil)
		f.userRepo.On("GetByID", ctx, actor.ID).Return(actor, nil)
		f.ticketRepo.On("Update", ctx, mock.AnythingOfType("*domain.Ticket")).
			Return(&domain.Ticket{ID: 4, Status: domain.StatusInProgress, Subject: "Laptop", AssigneeID: &actor.ID}, nil)

		var kinds []domain.EventKind
		f.expectPublish(&kinds)
		f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(params ports.NotificationParams) bool {
			return params.RecipientUserID == previousID
		})).Return()

		_, err := f.svc.TakeOver(ctx, ports.TakeOverParams{TicketID: 4, ActorID: actor.ID})
		f.svc.Shutdown()

		require.NoError(t, err)
		assert.Equal(t, []domain.EventKind{domain.EventTicketTakenOver, domain.EventTicketReassigned}, kinds)
		f.notifier.AssertExpectations(t)
	})

	t.Run("unassigned ticket notifies nobody", func(t *testing.T) {
		f := newTicketServiceFixture()
		actor := staffUser(domain.RoleTechnician)

		f.authz.On("Can", ctx, actor.ID, "tickets:assign").Return(true, nil)
		f.ticketRepo.On("GetByID", ctx, int64(4)).
			Return(&domain.Ticket{ID: 4, Status: domain.StatusOpen}, nil)
		f.userRepo.On("GetByID", ctx, actor.ID).Return(actor, nil)
		f.ticketRepo.On("Update", ctx, mock.AnythingOfType("*domain.Ticket")).
			Return(&domain.Ticket{ID: 4, Status: domain.StatusInProgress, AssigneeID: &actor.ID}, nil)

		var kinds []domain.EventKind
		f.expectPublish(&kinds)

		_, err := f.svc.TakeOver(ctx, ports.TakeOverParams{TicketID: 4, ActorID: actor.ID})
		f.svc.Shutdown()

		require.NoError(t, err)
		assert.Equal(t, []domain.EventKind{domain.EventTicketTakenOver}, kinds)
		f.notifier.AssertNotCalled(t, "Notify")
	})

	t.Run("member cannot take over", func(t *testing.T) {
		f := newTicketServiceFixture()
		member := staffUser(domain.RoleMember)

		f.authz.On("Can", ctx, member.ID, "tickets:assign").Return(true, nil)
		f.ticketRepo.On("GetByID", ctx, int64(4)).
			Return(&domain.Ticket{ID: 4, Status: domain.StatusOpen}, nil)
		f.userRepo.On("GetByID", ctx, member.ID).Return(member, nil)

		ticket, err := f.svc.TakeOver(ctx, ports.TakeOverParams{TicketID: 4, ActorID: member.ID})

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrNotTechnician)
	})
}

func TestTicketService_Forward(t *testing.T) {
	ctx := context.Background()

	t.Run("fans out to dashboard, ticket room and recipient", func(t *testing.T) {
		f := newTicketServiceFixture()
		actor := staffUser(domain.RoleTechnician)
		recipient := staffUser(domain.RoleTechnician)

		f.authz.On("Can", ctx, actor.ID, "tickets:forward").Return(true, nil)
		f.ticketRepo.On("GetByID", ctx, int64(6)).
			Return(&domain.Ticket{ID: 6, Status: domain.StatusInProgress, Subject: "Switch port", AssigneeID: &actor.ID}, nil)
		f.userRepo.On("GetByID", ctx, actor.ID).Return(actor, nil)
		f.userRepo.On("GetByID", ctx, recipient.ID).Return(recipient, nil)
		f.ticketRepo.On("Update", ctx, mock.AnythingOfType("*domain.Ticket")).
			Return(&domain.Ticket{ID: 6, Status: domain.StatusInProgress, Subject: "Switch port", AssigneeID: &recipient.ID}, nil)

		var kinds []domain.EventKind
		f.expectPublish(&kinds)
		f.notifier.On("Notify", mock.Anything, mock.AnythingOfType("ports.NotificationParams")).Return()

		_, err := f.svc.Forward(ctx, ports.ForwardTicketParams{
			TicketID: 6,
			ToID:     recipient.ID,
			ActorID:  actor.ID,
			Note:     "please pick this up",
		})
		f.svc.Shutdown()

		require.NoError(t, err)
		assert.Equal(t, []domain.EventKind{domain.EventTicketForwarded, domain.EventForwardedToYou}, kinds)
	})

	t.Run("rejects forwarding to a member", func(t *testing.T) {
		f := newTicketServiceFixture()
		actor := staffUser(domain.RoleTechnician)
		member := staffUser(domain.RoleMember)

		f.authz.On("Can", ctx, actor.ID, "tickets:forward").Return(true, nil)
		f.ticketRepo.On("GetByID", ctx, int64(6)).
			Return(&domain.Ticket{ID: 6, Status: domain.StatusOpen}, nil)
		f.userRepo.On("GetByID", ctx, actor.ID).Return(actor, nil)
		f.userRepo.On("GetByID", ctx, member.ID).Return(member, nil)

		ticket, err := f.svc.Forward(ctx, ports.ForwardTicketParams{
			TicketID: 6,
			ToID:     member.ID,
			ActorID:  actor.ID,
		})

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrNotTechnician)
	})
}

func TestTicketService_ReferToDirector(t *testing.T) {
	ctx := context.Background()

	t.Run("escalates to the first available director", func(t *testing.T) {
		f := newTicketServiceFixture()
		actor := staffUser(domain.RoleTechnician)
		director := staffUser(domain.RoleTechnicalDirector)

		f.authz.On("Can", ctx, actor.ID, "tickets:forward").Return(true, nil)
		f.ticketRepo.On("GetByID", ctx, int64(8)).
			Return(&domain.Ticket{ID: 8, Status: domain.StatusInProgress, Subject: "Escalation"}, nil)
		f.userRepo.On("GetByID", ctx, actor.ID).Return(actor, nil)
		f.userRepo.On("ListByRole", ctx, actor.OrganizationID, domain.RoleTechnicalDirector).
			Return([]*domain.User{director}, nil)
		f.ticketRepo.On("Update", ctx, mock.AnythingOfType("*domain.Ticket")).
			Return(&domain.Ticket{ID: 8, Status: domain.StatusInProgress, Subject: "Escalation", AssigneeID: &director.ID}, nil)

		var kinds []domain.EventKind
		f.expectPublish(&kinds)
		f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(params ports.NotificationParams) bool {
			return params.RecipientUserID == director.ID
		})).Return()

		_, err := f.svc.ReferToDirector(ctx, ports.ReferToDirectorParams{TicketID: 8, ActorID: actor.ID})
		f.svc.Shutdown()

		require.NoError(t, err)
		assert.Equal(t, []domain.EventKind{
			domain.EventReferredToDirector,
			domain.EventReferredToYou,
			domain.EventTicketForwarded,
			domain.EventTicketReferred,
		}, kinds)
	})

	t.Run("fails when no director exists", func(t *testing.T) {
		f := newTicketServiceFixture()
		actor := staffUser(domain.RoleTechnician)

		f.authz.On("Can", ctx, actor.ID, "tickets:forward").Return(true, nil)
		f.ticketRepo.On("GetByID", ctx, int64(8)).
			Return(&domain.Ticket{ID: 8, Status: domain.StatusOpen}, nil)
		f.userRepo.On("GetByID", ctx, actor.ID).Return(actor, nil)
		f.userRepo.On("ListByRole", ctx, actor.OrganizationID, domain.RoleTechnicalDirector).
			Return([]*domain.User{}, nil)

		ticket, err := f.svc.ReferToDirector(ctx, ports.ReferToDirectorParams{TicketID: 8, ActorID: actor.ID})

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrNoDirector)
		f.ticketRepo.AssertNotCalled(t, "Update")
	})
}

func TestTicketService_SetBookmark(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes bookmark change", func(t *testing.T) {
		f := newTicketServiceFixture()
		actorID := uuid.New()

		f.authz.On("Can", ctx, actorID, "tickets:bookmark").Return(true, nil)
		f.ticketRepo.On("GetByID", ctx, int64(3)).
			Return(&domain.Ticket{ID: 3, Status: domain.StatusOpen}, nil)
		f.ticketRepo.On("Update", ctx, mock.MatchedBy(func(ticket *domain.Ticket) bool {
			return ticket.Important
		})).Return(&domain.Ticket{ID: 3, Important: true}, nil)

		var kinds []domain.EventKind
		f.expectPublish(&kinds)

		ticket, err := f.svc.SetBookmark(ctx, ports.SetBookmarkParams{TicketID: 3, Important: true, ActorID: actorID})

		require.NoError(t, err)
		assert.True(t, ticket.Important)
		assert.Equal(t, []domain.EventKind{domain.EventTicketBookmarked}, kinds)
	})
}
