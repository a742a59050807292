package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/autoassistgroup/helpdesk-backend/internal/adapters/primary/http/middleware"
	"github.com/autoassistgroup/helpdesk-backend/internal/adapters/primary/validation"
	"github.com/autoassistgroup/helpdesk-backend/internal/auth"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/ports"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService  ports.AuthService
	tokenManager *auth.TokenManager
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(
	authService ports.AuthService,
	tokenManager *auth.TokenManager,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenManager: tokenManager,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "auth"),
	}
}

// Router sets up a new chi Router for auth routes.
func (h *AuthHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
	return r
}

// --- Request/Response DTOs ---

// RegisterRequest defines the expected JSON body for registration
type RegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	OrgID    string `json:"orgId,omitempty"`
}

// Validate validates the register request
func (r *RegisterRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("fullName", r.FullName).
		MaxLength("fullName", r.FullName, domain.MaxFullNameLength)

	v.Required("email", r.Email).
		Email("email", r.Email)

	v.Required("password", r.Password).
		MinLength("password", r.Password, domain.MinPasswordLength)

	if r.OrgID != "" {
		v.UUID("orgId", r.OrgID)
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// LoginRequest defines the expected JSON body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate validates the login request
func (r *LoginRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("email", r.Email)
	v.Required("password", r.Password)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UserDTO defines the JSON response for the authenticated user
type UserDTO struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func toUserDTO(user *domain.User) UserDTO {
	return UserDTO{
		ID:       user.ID.String(),
		FullName: user.FullName,
		Email:    user.Email,
		Role:     string(user.Role),
	}
}

// AuthResponse carries the token and the authenticated user
type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// --- Handlers ---

// HandleRegister handles POST /auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[RegisterRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	orgID := uuid.Nil
	if req.OrgID != "" {
		orgID, _ = uuid.Parse(req.OrgID)
	}

	user, err := h.authService.Register(r.Context(), req.FullName, req.Email, req.Password, orgID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	token, err := h.tokenManager.GenerateToken(user)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("user registered", "user_id", user.ID)

	WriteCreated(w, AuthResponse{Token: token, User: toUserDTO(user)})
}

// HandleLogin handles POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[LoginRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	token, err := h.tokenManager.GenerateToken(user)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, AuthResponse{Token: token, User: toUserDTO(user)})
}

// HandleMe handles GET /me. It is mounted behind the JWT middleware.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	WriteSuccess(w, UserDTO{
		ID:       claims.UserID.String(),
		FullName: claims.FullName,
		Role:     string(claims.Role),
	})
}
