package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/autoassistgroup/helpdesk-backend/internal/adapters/primary/http/middleware"
	"github.com/autoassistgroup/helpdesk-backend/internal/adapters/primary/validation"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/ports"
)

// AdminHandler handles user administration and dashboard analytics endpoints
type AdminHandler struct {
	adminService ports.AdminService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService ports.AdminService, errorHandler *ErrorHandler, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "admin"),
	}
}

// Router sets up a new chi Router for admin routes.
func (h *AdminHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/users", h.HandleListUsers)
	r.Patch("/users/{userID}/role", h.HandleUpdateUserRole)
	r.Get("/dashboard", h.HandleDashboardOverview)
	return r
}

// UpdateRoleRequest defines the expected JSON body for role changes
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// Validate validates the update role request
func (r *UpdateRoleRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("role", r.Role).
		OneOf("role", r.Role, []string{"member", "technician", "technical_director", "admin"})

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// StatusCountDTO is one status bucket in the dashboard response.
type StatusCountDTO struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// WorkloadItemDTO is one technician's open-ticket count.
type WorkloadItemDTO struct {
	AssigneeID *string `json:"assigneeId"`
	FullName   string  `json:"fullName"`
	Email      string  `json:"email"`
	Count      int64   `json:"count"`
}

// VolumePointDTO is a single day in the created/resolved volume series.
type VolumePointDTO struct {
	Day           string `json:"day"`
	CreatedCount  int64  `json:"createdCount"`
	ResolvedCount int64  `json:"resolvedCount"`
}

// DashboardOverviewDTO defines the JSON response for the dashboard.
type DashboardOverviewDTO struct {
	StatusCounts []StatusCountDTO  `json:"statusCounts"`
	Workload     []WorkloadItemDTO `json:"workload"`
	Volume       []VolumePointDTO  `json:"volume"`
	MTTRHours    float64           `json:"mttrHours"`
}

func toDashboardOverviewDTO(overview *domain.DashboardOverview) DashboardOverviewDTO {
	dto := DashboardOverviewDTO{
		StatusCounts: make([]StatusCountDTO, 0, len(overview.StatusCounts)),
		Workload:     make([]WorkloadItemDTO, 0, len(overview.Workload)),
		Volume:       make([]VolumePointDTO, 0, len(overview.Volume)),
		MTTRHours:    overview.MTTRHours,
	}

	for _, sc := range overview.StatusCounts {
		dto.StatusCounts = append(dto.StatusCounts, StatusCountDTO{
			Status: string(sc.Status),
			Count:  sc.Count,
		})
	}

	for _, item := range overview.Workload {
		var assigneeID *string
		if item.AssigneeID != nil {
			value := item.AssigneeID.String()
			assigneeID = &value
		}
		dto.Workload = append(dto.Workload, WorkloadItemDTO{
			AssigneeID: assigneeID,
			FullName:   item.FullName,
			Email:      item.Email,
			Count:      item.Count,
		})
	}

	for _, point := range overview.Volume {
		dto.Volume = append(dto.Volume, VolumePointDTO{
			Day:           point.Day.Format(time.DateOnly),
			CreatedCount:  point.CreatedCount,
			ResolvedCount: point.ResolvedCount,
		})
	}

	return dto
}

// HandleListUsers handles GET /admin/users
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	users, err := h.adminService.ListUsers(r.Context(), claims.UserID, claims.OrgID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	response := make([]UserDTO, 0, len(users))
	for _, user := range users {
		response = append(response, toUserDTO(user))
	}

	WriteList(w, response)
}

// HandleUpdateUserRole handles PATCH /admin/users/{userID}/role
func (h *AdminHandler) HandleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		v := validation.NewValidator()
		v.Custom("userID", false, "Invalid user ID")
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	req, err := validation.DecodeAndValidate[UpdateRoleRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.adminService.UpdateUserRole(r.Context(), claims.UserID, userID, domain.Role(req.Role)); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("user role updated",
		"user_id", userID,
		"role", req.Role,
		"actor_id", claims.UserID,
	)

	WriteNoContent(w)
}

// HandleDashboardOverview handles GET /admin/dashboard
func (h *AdminHandler) HandleDashboardOverview(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	days := validation.ParseIntQueryParam(r, "days", 90)

	overview, err := h.adminService.DashboardOverview(r.Context(), claims.UserID, claims.OrgID, days)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, toDashboardOverviewDTO(overview))
}
