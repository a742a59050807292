package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/autoassistgroup/helpdesk-backend/internal/adapters/primary/http/middleware"
	"github.com/autoassistgroup/helpdesk-backend/internal/adapters/primary/validation"
	"github.com/autoassistgroup/helpdesk-backend/internal/auth"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/ports"
)

const maxTicketsPerPage = 100

// TicketHandler handles HTTP requests for tickets
type TicketHandler struct {
	ticketService ports.TicketService
	replyHandler  *ReplyHandler
	errorHandler  *ErrorHandler
	logger        *slog.Logger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(
	ticketService ports.TicketService,
	replyHandler *ReplyHandler,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
		replyHandler:  replyHandler,
		errorHandler:  errorHandler,
		logger:        logger.With("handler", "ticket"),
	}
}

// Router sets up a new chi Router for all ticket-related routes.
func (h *TicketHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for all ticket endpoints.
func (h *TicketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListTickets)
	r.Post("/", h.HandleCreateTicket)

	// Routes for a specific ticket
	r.Route("/{ticketID}", func(r chi.Router) {
		r.Get("/", h.HandleGetTicket)
		r.Patch("/status", h.HandleUpdateStatus)
		r.Patch("/priority", h.HandleUpdatePriority)
		r.Put("/bookmark", h.HandleSetBookmark)
		r.Patch("/assignee", h.HandleAssignTechnician)
		r.Post("/takeover", h.HandleTakeOver)
		r.Post("/forward", h.HandleForward)
		r.Post("/refer-director", h.HandleReferToDirector)

		// Mount the reply routes nested under /tickets/{ticketID}
		if h.replyHandler != nil {
			r.Mount("/replies", h.replyHandler.Router())
		}
	})
}

// --- Request/Response DTOs ---

// CreateTicketRequest defines the expected JSON body for creating a ticket
type CreateTicketRequest struct {
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Priority string `json:"priority"`
}

// Validate validates the create ticket request
func (r *CreateTicketRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("subject", r.Subject).
		MaxLength("subject", r.Subject, domain.MaxSubjectLength)

	v.Required("body", r.Body).
		MaxLength("body", r.Body, domain.MaxBodyLength)

	if r.Priority != "" {
		v.OneOf("priority", r.Priority, []string{"LOW", "MEDIUM", "HIGH", "URGENT"})
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateStatusRequest defines the expected JSON body for status updates
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// Validate validates the update status request
func (r *UpdateStatusRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("status", r.Status).
		OneOf("status", r.Status, []string{"OPEN", "IN_PROGRESS", "RESOLVED", "CLOSED"})

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdatePriorityRequest defines the expected JSON body for priority updates
type UpdatePriorityRequest struct {
	Priority string `json:"priority"`
}

// Validate validates the update priority request
func (r *UpdatePriorityRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("priority", r.Priority).
		OneOf("priority", r.Priority, []string{"LOW", "MEDIUM", "HIGH", "URGENT"})

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// BookmarkRequest defines the expected JSON body for bookmark toggles
type BookmarkRequest struct {
	Important bool `json:"important"`
}

// AssignTicketRequest defines the expected JSON body for assigning a ticket
type AssignTicketRequest struct {
	TechnicianID string `json:"technicianId"`
}

// Validate validates the assign ticket request
func (r *AssignTicketRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("technicianId", r.TechnicianID).
		UUID("technicianId", r.TechnicianID)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// ForwardTicketRequest defines the expected JSON body for forwarding
type ForwardTicketRequest struct {
	ToID string `json:"toId"`
	Note string `json:"note,omitempty"`
}

// Validate validates the forward ticket request
func (r *ForwardTicketRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("toId", r.ToID).
		UUID("toId", r.ToID)

	v.MaxLength("note", r.Note, 1000)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// TicketDTO defines the JSON response for tickets.
type TicketDTO struct {
	ID          int64   `json:"id"`
	Subject     string  `json:"subject"`
	Body        string  `json:"body"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	Important   bool    `json:"important"`
	RequesterID string  `json:"requesterId"`
	AssigneeID  *string `json:"assigneeId"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   *string `json:"updatedAt"`
	ClosedAt    *string `json:"closedAt"`
}

func toTicketDTO(ticket *domain.Ticket) TicketDTO {
	var assigneeID *string
	if ticket.AssigneeID != nil {
		value := ticket.AssigneeID.String()
		assigneeID = &value
	}

	var updatedAt *string
	if ticket.UpdatedAt != nil {
		value := ticket.UpdatedAt.Format(time.RFC3339)
		updatedAt = &value
	}

	var closedAt *string
	if ticket.ClosedAt != nil {
		value := ticket.ClosedAt.Format(time.RFC3339)
		closedAt = &value
	}

	return TicketDTO{
		ID:          ticket.ID,
		Subject:     ticket.Subject,
		Body:        ticket.Body,
		Status:      string(ticket.Status),
		Priority:    string(ticket.Priority),
		Important:   ticket.Important,
		RequesterID: ticket.RequesterID.String(),
		AssigneeID:  assigneeID,
		CreatedAt:   ticket.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   updatedAt,
		ClosedAt:    closedAt,
	}
}

func toTicketDTOs(tickets []*domain.Ticket) []TicketDTO {
	response := make([]TicketDTO, 0, len(tickets))
	for _, ticket := range tickets {
		response = append(response, toTicketDTO(ticket))
	}
	return response
}

// --- Handlers ---

// HandleListTickets handles GET /tickets
func (h *TicketHandler) HandleListTickets(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	pagination := validation.ParsePagination(r, maxTicketsPerPage)
	status := validation.ParseStringQueryParam(r, "status")
	priority := validation.ParseStringQueryParam(r, "priority")

	v := validation.NewValidator()
	if status != nil {
		v.OneOf("status", *status, []string{"OPEN", "IN_PROGRESS", "RESOLVED", "CLOSED"})
	}
	if priority != nil {
		v.OneOf("priority", *priority, []string{"LOW", "MEDIUM", "HIGH", "URGENT"})
	}
	if v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	tickets, err := h.ticketService.ListTickets(r.Context(), ports.ListTicketsParams{
		ViewerID: claims.UserID,
		Limit:    pagination.Limit,
		Offset:   pagination.Offset,
		Status:   status,
		Priority: priority,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WritePaginatedSimple(w, toTicketDTOs(tickets), pagination.Limit, pagination.Offset)
}

// HandleCreateTicket handles POST /tickets
func (h *TicketHandler) HandleCreateTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.CreateTicket(r.Context(), ports.CreateTicketParams{
		Subject:     req.Subject,
		Body:        req.Body,
		Priority:    domain.TicketPriority(req.Priority),
		RequesterID: claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("ticket created",
		"ticket_id", ticket.ID,
		"user_id", claims.UserID,
	)

	WriteCreated(w, toTicketDTO(ticket))
}

// HandleGetTicket handles GET /tickets/{ticketID}
func (h *TicketHandler) HandleGetTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.GetTicket(r.Context(), ticketID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, toTicketDTO(ticket))
}

// HandleUpdateStatus handles PATCH /tickets/{ticketID}/status
func (h *TicketHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateStatusRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.UpdateStatus(r.Context(), ports.UpdateStatusParams{
		TicketID: ticketID,
		Status:   domain.TicketStatus(req.Status),
		ActorID:  claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, toTicketDTO(ticket))
}

// HandleUpdatePriority handles PATCH /tickets/{ticketID}/priority
func (h *TicketHandler) HandleUpdatePriority(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdatePriorityRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.UpdatePriority(r.Context(), ports.UpdatePriorityParams{
		TicketID: ticketID,
		Priority: domain.TicketPriority(req.Priority),
		ActorID:  claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, toTicketDTO(ticket))
}

// HandleSetBookmark handles PUT /tickets/{ticketID}/bookmark
func (h *TicketHandler) HandleSetBookmark(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[BookmarkRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.SetBookmark(r.Context(), ports.SetBookmarkParams{
		TicketID:  ticketID,
		Important: req.Important,
		ActorID:   claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, toTicketDTO(ticket))
}

// HandleAssignTechnician handles PATCH /tickets/{ticketID}/assignee
func (h *TicketHandler) HandleAssignTechnician(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[AssignTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	technicianID, _ := uuid.Parse(req.TechnicianID)

	ticket, err := h.ticketService.AssignTechnician(r.Context(), ports.AssignTicketParams{
		TicketID:     ticketID,
		TechnicianID: technicianID,
		ActorID:      claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("ticket assigned",
		"ticket_id", ticket.ID,
		"technician_id", technicianID,
		"actor_id", claims.UserID,
	)

	WriteSuccess(w, toTicketDTO(ticket))
}

// HandleTakeOver handles POST /tickets/{ticketID}/takeover
func (h *TicketHandler) HandleTakeOver(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.TakeOver(r.Context(), ports.TakeOverParams{
		TicketID: ticketID,
		ActorID:  claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, toTicketDTO(ticket))
}

// HandleForward handles POST /tickets/{ticketID}/forward
func (h *TicketHandler) HandleForward(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[ForwardTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	toID, _ := uuid.Parse(req.ToID)

	ticket, err := h.ticketService.Forward(r.Context(), ports.ForwardTicketParams{
		TicketID: ticketID,
		ToID:     toID,
		ActorID:  claims.UserID,
		Note:     req.Note,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, toTicketDTO(ticket))
}

// HandleReferToDirector handles POST /tickets/{ticketID}/refer-director
func (h *TicketHandler) HandleReferToDirector(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.ReferToDirector(r.Context(), ports.ReferToDirectorParams{
		TicketID: ticketID,
		ActorID:  claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, toTicketDTO(ticket))
}

func (h *TicketHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}

// parseTicketID extracts and validates the ticket ID from the URL
func (h *TicketHandler) parseTicketID(r *http.Request) (int64, error) {
	ticketIDStr := chi.URLParam(r, "ticketID")
	ticketID, err := strconv.ParseInt(ticketIDStr, 10, 64)
	if err != nil || ticketID <= 0 {
		v := validation.NewValidator()
		v.Custom("ticketID", false, "Invalid ticket ID")
		return 0, v.Errors()
	}
	return ticketID, nil
}
