package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
	apperrors "github.com/autoassistgroup/helpdesk-backend/internal/core/errors"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/ports"
)

func createTestTicket(t *testing.T, requester *domain.User) *domain.Ticket {
	t.Helper()
	pool := requirePool(t)
	repo := NewTicketRepository(pool)

	ticket, err := domain.NewTicket(domain.TicketParams{
		Subject:     "Printer on fire",
		Body:        "It is printing and also on fire.",
		Priority:    domain.PriorityHigh,
		RequesterID: requester.ID,
	})
	require.NoError(t, err)

	created, err := repo.Create(context.Background(), ticket)
	require.NoError(t, err)
	return created
}

func TestTicketRepository_CreateAndGet(t *testing.T) {
	pool := requirePool(t)
	repo := NewTicketRepository(pool)
	ctx := context.Background()

	requester := createTestUser(t, domain.RoleMember)
	created := createTestTicket(t, requester)

	require.Positive(t, created.ID)
	assert.Equal(t, domain.StatusOpen, created.Status)
	assert.Equal(t, domain.PriorityHigh, created.Priority)
	assert.Nil(t, created.AssigneeID)

	fetched, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Subject, fetched.Subject)
	assert.Equal(t, requester.ID, fetched.RequesterID)
}

func TestTicketRepository_GetMissingReturnsNotFound(t *testing.T) {
	pool := requirePool(t)
	repo := NewTicketRepository(pool)

	_, err := repo.GetByID(context.Background(), 999999999)
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

func TestTicketRepository_UpdatePersistsLifecycleFields(t *testing.T) {
	pool := requirePool(t)
	repo := NewTicketRepository(pool)
	ctx := context.Background()

	requester := createTestUser(t, domain.RoleMember)
	technician := createTestUser(t, domain.RoleTechnician)
	ticket := createTestTicket(t, requester)

	require.NoError(t, ticket.Assign(technician.ID))
	require.NoError(t, ticket.UpdateStatus(domain.StatusInProgress))

	updated, err := repo.Update(ctx, ticket)
	require.NoError(t, err)
	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, technician.ID, *updated.AssigneeID)
	assert.Equal(t, domain.StatusInProgress, updated.Status)
	require.NotNil(t, updated.UpdatedAt)
	assert.WithinDuration(t, time.Now(), *updated.UpdatedAt, 5*time.Second)

	require.NoError(t, updated.UpdateStatus(domain.StatusResolved))
	require.NoError(t, updated.UpdateStatus(domain.StatusClosed))
	closed, err := repo.Update(ctx, updated)
	require.NoError(t, err)
	require.NotNil(t, closed.ClosedAt)
}

func TestTicketRepository_ListPaginatedFilters(t *testing.T) {
	pool := requirePool(t)
	repo := NewTicketRepository(pool)
	ctx := context.Background()

	requester := createTestUser(t, domain.RoleMember)
	createTestTicket(t, requester)

	all, err := repo.ListPaginated(ctx, ports.ListTicketsRepoParams{Limit: 50})
	require.NoError(t, err)
	assert.NotEmpty(t, all)

	urgent, err := repo.ListPaginated(ctx, ports.ListTicketsRepoParams{
		Limit:    50,
		Priority: pgtype.Text{String: string(domain.PriorityUrgent), Valid: true},
	})
	require.NoError(t, err)
	for _, ticket := range urgent {
		assert.Equal(t, domain.PriorityUrgent, ticket.Priority)
	}
}

func TestTicketRepository_ListByRequester(t *testing.T) {
	pool := requirePool(t)
	repo := NewTicketRepository(pool)
	ctx := context.Background()

	mine := createTestUser(t, domain.RoleMember)
	other := createTestUser(t, domain.RoleMember)
	created := createTestTicket(t, mine)
	createTestTicket(t, other)

	tickets, err := repo.ListByRequesterPaginated(ctx, ports.ListTicketsRepoParams{
		Limit:       50,
		RequesterID: pgtype.UUID{Bytes: mine.ID, Valid: true},
	})
	require.NoError(t, err)
	require.NotEmpty(t, tickets)
	for _, ticket := range tickets {
		assert.Equal(t, mine.ID, ticket.RequesterID)
	}

	found := false
	for _, ticket := range tickets {
		if ticket.ID == created.ID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestReplyRepository_CreateAndListRespectsInternalFlag(t *testing.T) {
	pool := requirePool(t)
	replyRepo := NewReplyRepository(pool)
	ctx := context.Background()

	requester := createTestUser(t, domain.RoleMember)
	technician := createTestUser(t, domain.RoleTechnician)
	ticket := createTestTicket(t, requester)

	public, err := domain.NewReply(domain.ReplyParams{
		TicketID: ticket.ID,
		AuthorID: requester.ID,
		Body:     "Any update?",
	})
	require.NoError(t, err)
	_, err = replyRepo.Create(ctx, public)
	require.NoError(t, err)

	note, err := domain.NewReply(domain.ReplyParams{
		TicketID: ticket.ID,
		AuthorID: technician.ID,
		Body:     "Requester seems impatient.",
		Internal: true,
	})
	require.NoError(t, err)
	_, err = replyRepo.Create(ctx, note)
	require.NoError(t, err)

	visible, err := replyRepo.ListByTicketID(ctx, ticket.ID, false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.False(t, visible[0].Internal)

	all, err := replyRepo.ListByTicketID(ctx, ticket.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
