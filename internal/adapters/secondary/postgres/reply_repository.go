package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/ports"
)

// ReplyRepository handles database operations for ticket replies.
type ReplyRepository struct {
	pool *pgxpool.Pool
}

var _ ports.ReplyRepository = (*ReplyRepository)(nil)

func NewReplyRepository(pool *pgxpool.Pool) ports.ReplyRepository {
	return &ReplyRepository{pool: pool}
}

const replyColumns = `id, ticket_id, author_id, body, internal, created_at`

func scanReply(row pgx.Row) (*domain.Reply, error) {
	var (
		reply     domain.Reply
		authorID  pgtype.UUID
		createdAt pgtype.Timestamptz
	)

	err := row.Scan(&reply.ID, &reply.TicketID, &authorID, &reply.Body, &reply.Internal, &createdAt)
	if err != nil {
		return nil, err
	}

	reply.AuthorID = authorID.Bytes
	reply.CreatedAt = createdAt.Time
	return &reply, nil
}

func (r *ReplyRepository) Create(ctx context.Context, reply *domain.Reply) (*domain.Reply, error) {
	query := `
		INSERT INTO replies (ticket_id, author_id, body, internal)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + replyColumns

	row := queryRunner(ctx, r.pool).QueryRow(ctx, query,
		reply.TicketID,
		pgtype.UUID{Bytes: reply.AuthorID, Valid: true},
		reply.Body,
		reply.Internal,
	)
	return scanReply(row)
}

func (r *ReplyRepository) ListByTicketID(ctx context.Context, ticketID int64, includeInternal bool) ([]*domain.Reply, error) {
	query := `
		SELECT ` + replyColumns + `
		FROM replies
		WHERE ticket_id = $1 AND (internal = false OR $2)
		ORDER BY created_at, id`

	rows, err := queryRunner(ctx, r.pool).Query(ctx, query, ticketID, includeInternal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	replies := make([]*domain.Reply, 0)
	for rows.Next() {
		reply, err := scanReply(rows)
		if err != nil {
			return nil, err
		}
		replies = append(replies, reply)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return replies, nil
}
