package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/autoassistgroup/helpdesk-backend/internal/adapters/primary/http/middleware"
	"github.com/autoassistgroup/helpdesk-backend/internal/adapters/primary/validation"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/ports"
)

// ReplyHandler handles HTTP requests for ticket replies
type ReplyHandler struct {
	replyService ports.ReplyService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewReplyHandler creates a new reply handler
func NewReplyHandler(replyService ports.ReplyService, errorHandler *ErrorHandler, logger *slog.Logger) *ReplyHandler {
	return &ReplyHandler{
		replyService: replyService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "reply"),
	}
}

// Router sets up a new chi Router for reply routes. The router is mounted
// under /tickets/{ticketID}, so the ticket ID is read from the parent route.
func (h *ReplyHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.HandleListReplies)
	r.Post("/", h.HandleCreateReply)
	return r
}

// CreateReplyRequest defines the expected JSON body for posting a reply
type CreateReplyRequest struct {
	Body     string `json:"body"`
	Internal bool   `json:"internal"`
}

// Validate validates the create reply request
func (r *CreateReplyRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("body", r.Body).
		MaxLength("body", r.Body, domain.MaxReplyLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// ReplyDTO defines the JSON response for replies.
type ReplyDTO struct {
	ID        int64  `json:"id"`
	TicketID  int64  `json:"ticketId"`
	AuthorID  string `json:"authorId"`
	Body      string `json:"body"`
	Internal  bool   `json:"internal"`
	CreatedAt string `json:"createdAt"`
}

func toReplyDTO(reply *domain.Reply) ReplyDTO {
	return ReplyDTO{
		ID:        reply.ID,
		TicketID:  reply.TicketID,
		AuthorID:  reply.AuthorID.String(),
		Body:      reply.Body,
		Internal:  reply.Internal,
		CreatedAt: reply.CreatedAt.Format(time.RFC3339),
	}
}

// HandleListReplies handles GET /tickets/{ticketID}/replies
func (h *ReplyHandler) HandleListReplies(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	ticketID, err := parseParentTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	replies, err := h.replyService.ListReplies(r.Context(), ports.ListRepliesParams{
		TicketID: ticketID,
		ActorID:  claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	response := make([]ReplyDTO, 0, len(replies))
	for _, reply := range replies {
		response = append(response, toReplyDTO(reply))
	}

	WriteList(w, response)
}

// HandleCreateReply handles POST /tickets/{ticketID}/replies
func (h *ReplyHandler) HandleCreateReply(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	ticketID, err := parseParentTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[CreateReplyRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	reply, err := h.replyService.CreateReply(r.Context(), ports.CreateReplyParams{
		TicketID: ticketID,
		ActorID:  claims.UserID,
		Body:     req.Body,
		Internal: req.Internal,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("reply created",
		"reply_id", reply.ID,
		"ticket_id", ticketID,
		"user_id", claims.UserID,
		"internal", reply.Internal,
	)

	WriteCreated(w, toReplyDTO(reply))
}

func parseParentTicketID(r *http.Request) (int64, error) {
	ticketIDStr := chi.URLParam(r, "ticketID")
	ticketID, err := strconv.ParseInt(ticketIDStr, 10, 64)
	if err != nil || ticketID <= 0 {
		v := validation.NewValidator()
		v.Custom("ticketID", false, "Invalid ticket ID")
		return 0, v.Errors()
	}
	return ticketID, nil
}
