package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/autoassistgroup/helpdesk-backend/internal/core/errors"
)

// MaxReplyLength is the maximum length of a reply body.
const MaxReplyLength = 20000

// Reply is a message posted on a ticket by its requester or by staff.
type Reply struct {
	ID        int64
	TicketID  int64
	AuthorID  uuid.UUID
	Body      string
	Internal  bool // internal notes are visible to staff only
	CreatedAt time.Time
}

// ReplyParams holds validated input for creating a reply.
type ReplyParams struct {
	TicketID int64
	AuthorID uuid.UUID
	Body     string
	Internal bool
}

// NewReply is a factory function to create a valid new reply.
func NewReply(params ReplyParams) (*Reply, error) {
	if params.TicketID <= 0 {
		return nil, apperrors.ErrTicketIDRequired
	}
	if params.AuthorID == uuid.Nil {
		return nil, apperrors.ErrAuthorIDRequired
	}
	if params.Body == "" {
		return nil, apperrors.ErrReplyBodyRequired
	}
	if len(params.Body) > MaxReplyLength {
		return nil, apperrors.ErrReplyBodyTooLong
	}

	return &Reply{
		TicketID:  params.TicketID,
		AuthorID:  params.AuthorID,
		Body:      params.Body,
		Internal:  params.Internal,
		CreatedAt: time.Now().UTC(),
	}, nil
}
