package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
	apperrors "github.com/autoassistgroup/helpdesk-backend/internal/core/errors"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/ports"
)

// TicketRepository handles database operations for tickets.
type TicketRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TicketRepository = (*TicketRepository)(nil)

func NewTicketRepository(pool *pgxpool.Pool) ports.TicketRepository {
	return &TicketRepository{pool: pool}
}

const ticketColumns = `id, subject, body, status, priority, important, requester_id, assignee_id, created_at, updated_at, closed_at`

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket      domain.Ticket
		status      string
		priority    string
		requesterID pgtype.UUID
		assigneeID  pgtype.UUID
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
		closedAt    pgtype.Timestamptz
	)

	err := row.Scan(&ticket.ID, &ticket.Subject, &ticket.Body, &status, &priority,
		&ticket.Important, &requesterID, &assigneeID, &createdAt, &updatedAt, &closedAt)
	if err != nil {
		return nil, err
	}

	ticket.Status = domain.TicketStatus(status)
	ticket.Priority = domain.TicketPriority(priority)
	ticket.RequesterID = requesterID.Bytes
	if assigneeID.Valid {
		id := uuid.UUID(assigneeID.Bytes)
		ticket.AssigneeID = &id
	}
	ticket.CreatedAt = createdAt.Time
	if updatedAt.Valid {
		t := updatedAt.Time
		ticket.UpdatedAt = &t
	}
	if closedAt.Valid {
		t := closedAt.Time
		ticket.ClosedAt = &t
	}
	return &ticket, nil
}

func assigneeParam(ticket *domain.Ticket) pgtype.UUID {
	if ticket.AssigneeID == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *ticket.AssigneeID, Valid: true}
}

func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	query := `
		INSERT INTO tickets (subject, body, status, priority, important, requester_id, assignee_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + ticketColumns

	row := queryRunner(ctx, r.pool).QueryRow(ctx, query,
		ticket.Subject,
		ticket.Body,
		string(ticket.Status),
		string(ticket.Priority),
		ticket.Important,
		pgtype.UUID{Bytes: ticket.RequesterID, Valid: true},
		assigneeParam(ticket),
	)
	return scanTicket(row)
}

func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	ticket, err := scanTicket(queryRunner(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func (r *TicketRepository) Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	query := `
		UPDATE tickets
		SET subject = $2, body = $3, status = $4, priority = $5, important = $6,
		    assignee_id = $7, updated_at = $8, closed_at = $9
		WHERE id = $1
		RETURNING ` + ticketColumns

	var updatedAt, closedAt pgtype.Timestamptz
	if ticket.UpdatedAt != nil {
		updatedAt = pgtype.Timestamptz{Time: *ticket.UpdatedAt, Valid: true}
	}
	if ticket.ClosedAt != nil {
		closedAt = pgtype.Timestamptz{Time: *ticket.ClosedAt, Valid: true}
	}

	row := queryRunner(ctx, r.pool).QueryRow(ctx, query,
		ticket.ID,
		ticket.Subject,
		ticket.Body,
		string(ticket.Status),
		string(ticket.Priority),
		ticket.Important,
		assigneeParam(ticket),
		updatedAt,
		closedAt,
	)

	updated, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (r *TicketRepository) ListPaginated(ctx context.Context, params ports.ListTicketsRepoParams) ([]*domain.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE ($3::text IS NULL OR status = $3)
		  AND ($4::text IS NULL OR priority = $4)
		ORDER BY important DESC, created_at DESC
		LIMIT $1 OFFSET $2`

	return r.queryTickets(ctx, query, params.Limit, params.Offset, params.Status, params.Priority)
}

func (r *TicketRepository) ListByRequesterPaginated(ctx context.Context, params ports.ListTicketsRepoParams) ([]*domain.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE requester_id = $3
		  AND ($4::text IS NULL OR status = $4)
		  AND ($5::text IS NULL OR priority = $5)
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	return r.queryTickets(ctx, query, params.Limit, params.Offset, params.RequesterID, params.Status, params.Priority)
}

func (r *TicketRepository) queryTickets(ctx context.Context, query string, args ...interface{}) ([]*domain.Ticket, error) {
	rows, err := queryRunner(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]*domain.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}
