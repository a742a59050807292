// Package errors defines the domain's sentinel errors and the AppError
// envelope the HTTP layer maps to status codes.
package errors

import (
	"errors"
	"fmt"
)

// Authentication and authorization.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserExists          = errors.New("user already exists")
	ErrForbidden           = errors.New("action forbidden")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrRoleAlreadyAssigned = errors.New("role already assigned")
)

// Account fields.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailInvalid     = errors.New("email format is invalid")
	ErrPasswordTooWeak  = errors.New("password does not meet security requirements")
	ErrPasswordRequired = errors.New("password is required")
	ErrFullNameRequired = errors.New("full name is required")
	ErrInvalidRole      = errors.New("invalid role")
)

// Ticket lifecycle.
var (
	ErrTicketNotFound          = errors.New("ticket not found")
	ErrSubjectRequired         = errors.New("subject is required")
	ErrSubjectTooLong          = errors.New("subject exceeds maximum length of 255 characters")
	ErrBodyTooLong             = errors.New("body exceeds maximum length")
	ErrInvalidPriority         = errors.New("invalid ticket priority")
	ErrInvalidStatus           = errors.New("invalid ticket status")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrRequesterRequired       = errors.New("requester ID is required")
	ErrCannotAssignClosed      = errors.New("cannot assign a closed ticket")
	ErrTicketClosed            = errors.New("ticket is closed")
	ErrAlreadyAssignee         = errors.New("ticket is already assigned to this technician")
	ErrNotTechnician           = errors.New("target user is not a technician")
	ErrNoDirector              = errors.New("no technical director available")
)

// Replies.
var (
	ErrReplyBodyRequired = errors.New("reply body is required")
	ErrReplyBodyTooLong  = errors.New("reply body exceeds maximum length")
	ErrTicketIDRequired  = errors.New("ticket ID is required")
	ErrAuthorIDRequired  = errors.New("author ID is required")
)

// Websocket room joins.
var (
	// ErrNoIdentity means a join needed a user identity the token did
	// not carry.
	ErrNoIdentity = errors.New("no identity available for room join")

	// ErrRoomForbidden means the connection's identity does not permit
	// the requested room.
	ErrRoomForbidden = errors.New("not allowed to join room")
)

// Generic fallbacks for the HTTP error mapping.
var (
	ErrNotFound    = errors.New("resource not found")
	ErrInternal    = errors.New("internal server error")
	ErrBadRequest  = errors.New("bad request")
	ErrConflict    = errors.New("resource conflict")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// AppError carries what the HTTP layer needs to answer: a message for
// the client, a machine code, and the status.
type AppError struct {
	Err        error
	Message    string
	Code       string
	StatusCode int
	Details    map[string]any
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewBadRequestError wraps a malformed-input failure as a 400.
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{Err: err, Message: message, Code: "BAD_REQUEST", StatusCode: 400}
}

// NewForbiddenError builds a 403 with a caller-facing explanation.
func NewForbiddenError(message string) *AppError {
	return &AppError{Err: ErrForbidden, Message: message, Code: "FORBIDDEN", StatusCode: 403}
}

// ValidationErrors aggregates per-field problems so a response can list
// them all.
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Errors: make(map[string][]string)}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
