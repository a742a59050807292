package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	mw "github.com/autoassistgroup/helpdesk-backend/internal/adapters/primary/http/middleware"
	apperrors "github.com/autoassistgroup/helpdesk-backend/internal/core/errors"
)

// GetRequestID re-exports the middleware lookup so handlers in this
// package need not import middleware directly.
func GetRequestID(ctx context.Context) string {
	return mw.GetRequestID(ctx)
}

// ErrorResponse is the JSON error body every endpoint emits.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ValidationErrorResponse adds per-field messages to the error body.
type ValidationErrorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// errorMapping pairs a sentinel error with its HTTP presentation.
type errorMapping struct {
	err    error
	status int
	code   string
	msg    string // empty means use err.Error()
}

// domainErrorMap drives the sentinel-to-response translation. First
// match wins, so more specific sentinels must precede wrapped ones.
var domainErrorMap = []errorMapping{
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials"},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required"},
	{apperrors.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "You do not have permission to perform this action"},

	{apperrors.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND", "User not found"},
	{apperrors.ErrTicketNotFound, http.StatusNotFound, "TICKET_NOT_FOUND", "Ticket not found"},
	{apperrors.ErrNoDirector, http.StatusNotFound, "NO_DIRECTOR", "No technical director is available"},

	{apperrors.ErrUserExists, http.StatusConflict, "USER_EXISTS", "A user with this email already exists"},
	{apperrors.ErrAlreadyAssignee, http.StatusConflict, "ALREADY_ASSIGNEE", "The ticket is already assigned to this technician"},
	{apperrors.ErrRoleAlreadyAssigned, http.StatusConflict, "ROLE_ALREADY_ASSIGNED", "The user already has this role"},

	{apperrors.ErrInvalidStatusTransition, http.StatusBadRequest, "INVALID_STATUS_TRANSITION", "Invalid status transition"},
	{apperrors.ErrCannotAssignClosed, http.StatusBadRequest, "CANNOT_ASSIGN_CLOSED", "Cannot assign a closed ticket"},
	{apperrors.ErrTicketClosed, http.StatusBadRequest, "TICKET_CLOSED", "The ticket is closed"},
	{apperrors.ErrNotTechnician, http.StatusBadRequest, "NOT_TECHNICIAN", "The target user is not a technician"},

	{apperrors.ErrSubjectRequired, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrSubjectTooLong, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrBodyTooLong, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrInvalidPriority, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrInvalidStatus, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrInvalidRole, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrReplyBodyRequired, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrReplyBodyTooLong, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrEmailRequired, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrEmailInvalid, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrPasswordTooWeak, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrPasswordRequired, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperrors.ErrFullNameRequired, http.StatusBadRequest, "VALIDATION_ERROR", ""},

	{apperrors.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later."},
}

// ErrorHandler translates service errors into HTTP responses and logs
// them with request context.
type ErrorHandler struct {
	logger *slog.Logger
}

func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle writes the response for err. AppError and ValidationErrors
// carry their own presentation; anything else goes through the sentinel
// table, defaulting to a 500 that hides the underlying error.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		h.log(r, appErr.StatusCode, appErr.Err)
		WriteJSON(w, appErr.StatusCode, ErrorResponse{
			Error:   appErr.Message,
			Code:    appErr.Code,
			Details: appErr.Details,
		})
		return
	}

	var fieldErrs *apperrors.ValidationErrors
	if errors.As(err, &fieldErrs) {
		h.log(r, http.StatusUnprocessableEntity, err)
		WriteJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:  "Validation failed",
			Code:   "VALIDATION_ERROR",
			Fields: fieldErrs.Errors,
		})
		return
	}

	for _, m := range domainErrorMap {
		if errors.Is(err, m.err) {
			msg := m.msg
			if msg == "" {
				msg = err.Error()
			}
			h.log(r, m.status, err)
			WriteJSON(w, m.status, ErrorResponse{Error: msg, Code: m.code})
			return
		}
	}

	h.log(r, http.StatusInternalServerError, err)
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: "An unexpected error occurred",
		Code:  "INTERNAL_ERROR",
	})
}

func (h *ErrorHandler) log(r *http.Request, status int, err error) {
	attrs := []any{
		"request_id", GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", status,
		"error", err.Error(),
	}

	if status >= 500 {
		h.logger.Error("server error", attrs...)
		return
	}
	h.logger.Warn("client error", attrs...)
}
