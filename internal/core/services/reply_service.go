package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
	apperrors "github.com/autoassistgroup/helpdesk-backend/internal/core/errors"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/ports"
)

// ReplyService implements reply business logic.
type ReplyService struct {
	replyRepo   ports.ReplyRepository
	ticketRepo  ports.TicketRepository
	userRepo    ports.UserRepository
	authz       ports.AuthorizationService
	broadcaster ports.EventBroadcaster
	logger      *slog.Logger
}

var _ ports.ReplyService = (*ReplyService)(nil)

// NewReplyService creates a new reply service
func NewReplyService(
	replyRepo ports.ReplyRepository,
	ticketRepo ports.TicketRepository,
	userRepo ports.UserRepository,
	authz ports.AuthorizationService,
	broadcaster ports.EventBroadcaster,
	logger *slog.Logger,
) *ReplyService {
	return &ReplyService{
		replyRepo:   replyRepo,
		ticketRepo:  ticketRepo,
		userRepo:    userRepo,
		authz:       authz,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// CreateReply posts a reply on a ticket and broadcasts it to the ticket
// room. Closed tickets reject new replies.
func (s *ReplyService) CreateReply(ctx context.Context, params ports.CreateReplyParams) (*domain.Reply, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, params.TicketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.StatusClosed {
		return nil, apperrors.ErrTicketClosed
	}

	author, err := s.userRepo.GetByID(ctx, params.ActorID)
	if err != nil {
		return nil, err
	}

	if !ticket.IsOwnedBy(author.ID) {
		allowed, err := s.authz.Can(ctx, author.ID, PermReplyCreate)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, apperrors.NewForbiddenError("you cannot reply to this ticket")
		}
	}

	if params.Internal {
		allowed, err := s.authz.Can(ctx, author.ID, PermReplyInternal)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, apperrors.NewForbiddenError("internal notes require staff access")
		}
	}

	reply, err := domain.NewReply(domain.ReplyParams{
		TicketID: ticket.ID,
		AuthorID: author.ID,
		Body:     params.Body,
		Internal: params.Internal,
	})
	if err != nil {
		return nil, err
	}

	created, err := s.replyRepo.Create(ctx, reply)
	if err != nil {
		return nil, fmt.Errorf("creating reply: %w", err)
	}

	// Internal notes stay off the wire; members in the ticket room must
	// not see them.
	if !created.Internal {
		for _, event := range domain.NewReplyEvents(domain.ReplyPayload{
			Reply:      created,
			AuthorName: author.FullName,
		}) {
			s.broadcaster.Publish(event)
		}
	}

	s.logger.InfoContext(ctx, "reply created",
		slog.Int64("ticket_id", created.TicketID),
		slog.Int64("reply_id", created.ID),
		slog.Bool("internal", created.Internal))

	return created, nil
}

// ListReplies returns a ticket's replies. Internal notes are included
// only for staff viewers.
func (s *ReplyService) ListReplies(ctx context.Context, params ports.ListRepliesParams) ([]*domain.Reply, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, params.TicketID)
	if err != nil {
		return nil, err
	}

	canInternal, err := s.authz.Can(ctx, params.ActorID, PermReplyInternal)
	if err != nil {
		return nil, err
	}

	if !ticket.IsOwnedBy(params.ActorID) && !canInternal {
		return nil, apperrors.NewForbiddenError("you do not have access to this ticket")
	}

	return s.replyRepo.ListByTicketID(ctx, ticket.ID, canInternal)
}
