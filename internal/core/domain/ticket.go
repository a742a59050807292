package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/autoassistgroup/helpdesk-backend/internal/core/errors"
)

// Ticket field limits
const (
	MaxSubjectLength = 255
	MaxBodyLength    = 20000
)

// TicketStatus represents the possible states of a ticket.
type TicketStatus string

const (
	StatusOpen       TicketStatus = "OPEN"
	StatusInProgress TicketStatus = "IN_PROGRESS"
	StatusResolved   TicketStatus = "RESOLVED"
	StatusClosed     TicketStatus = "CLOSED"
)

// IsValid reports whether the status is a known ticket status.
func (s TicketStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// TicketPriority represents the urgency of a ticket.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "LOW"
	PriorityMedium TicketPriority = "MEDIUM"
	PriorityHigh   TicketPriority = "HIGH"
	PriorityUrgent TicketPriority = "URGENT"
)

// IsValid reports whether the priority is a known ticket priority.
func (p TicketPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Ticket is the core domain entity. The assigned technician is a single
// optional reference, normalized at write time: forwarding, takeover and
// assignment all mutate AssigneeID and nothing else.
type Ticket struct {
	ID          int64
	Subject     string
	Body        string
	Status      TicketStatus
	Priority    TicketPriority
	Important   bool
	RequesterID uuid.UUID
	AssigneeID  *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	ClosedAt    *time.Time
}

// TicketParams holds validated input for creating a ticket.
type TicketParams struct {
	Subject     string
	Body        string
	Priority    TicketPriority
	RequesterID uuid.UUID
}

// NewTicket is a factory function to create a valid new ticket.
func NewTicket(params TicketParams) (*Ticket, error) {
	if params.Subject == "" {
		return nil, apperrors.ErrSubjectRequired
	}
	if len(params.Subject) > MaxSubjectLength {
		return nil, apperrors.ErrSubjectTooLong
	}
	if len(params.Body) > MaxBodyLength {
		return nil, apperrors.ErrBodyTooLong
	}
	if params.RequesterID == uuid.Nil {
		return nil, apperrors.ErrRequesterRequired
	}

	priority := params.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.IsValid() {
		return nil, apperrors.ErrInvalidPriority
	}

	return &Ticket{
		Subject:     params.Subject,
		Body:        params.Body,
		Status:      StatusOpen,
		Priority:    priority,
		RequesterID: params.RequesterID,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// validTransitions defines the allowed status state machine. Resolved
// tickets can be reopened; closed tickets are final.
var validTransitions = map[TicketStatus][]TicketStatus{
	StatusOpen:       {StatusInProgress, StatusResolved, StatusClosed},
	StatusInProgress: {StatusOpen, StatusResolved, StatusClosed},
	StatusResolved:   {StatusInProgress, StatusClosed},
	StatusClosed:     {},
}

// UpdateStatus changes the ticket's status, enforcing business rules.
func (t *Ticket) UpdateStatus(newStatus TicketStatus) error {
	if !newStatus.IsValid() {
		return apperrors.ErrInvalidStatus
	}

	allowed, ok := validTransitions[t.Status]
	if !ok {
		return apperrors.ErrInvalidStatusTransition
	}

	for _, s := range allowed {
		if s == newStatus {
			t.Status = newStatus
			t.touch()
			if newStatus == StatusClosed {
				closedAt := time.Now().UTC()
				t.ClosedAt = &closedAt
			}
			return nil
		}
	}

	return apperrors.ErrInvalidStatusTransition
}

// UpdatePriority changes the ticket's priority.
func (t *Ticket) UpdatePriority(newPriority TicketPriority) error {
	if !newPriority.IsValid() {
		return apperrors.ErrInvalidPriority
	}
	if t.Status == StatusClosed {
		return apperrors.ErrTicketClosed
	}
	t.Priority = newPriority
	t.touch()
	return nil
}

// Assign sets or changes the assigned technician.
func (t *Ticket) Assign(assigneeID uuid.UUID) error {
	if t.Status == StatusClosed {
		return apperrors.ErrCannotAssignClosed
	}
	t.AssigneeID = &assigneeID
	t.touch()
	return nil
}

// TakeOver reassigns the ticket to the acting technician and returns the
// previous assignee, if any, so callers can notify them.
func (t *Ticket) TakeOver(actorID uuid.UUID) (*uuid.UUID, error) {
	if t.Status == StatusClosed {
		return nil, apperrors.ErrCannotAssignClosed
	}
	previous := t.AssigneeID
	if previous != nil && *previous == actorID {
		return nil, apperrors.ErrAlreadyAssignee
	}
	t.AssigneeID = &actorID
	t.touch()
	return previous, nil
}

// Forward hands the ticket from one technician to another. The recipient
// becomes the sole assignee.
func (t *Ticket) Forward(toID uuid.UUID) error {
	if t.Status == StatusClosed {
		return apperrors.ErrCannotAssignClosed
	}
	if t.AssigneeID != nil && *t.AssigneeID == toID {
		return nil // forwarding to the current assignee is a no-op
	}
	t.AssigneeID = &toID
	t.touch()
	return nil
}

// SetImportant toggles the ticket's bookmark flag.
func (t *Ticket) SetImportant(important bool) {
	if t.Important == important {
		return
	}
	t.Important = important
	t.touch()
}

// IsOwnedBy reports whether the given user submitted this ticket.
func (t *Ticket) IsOwnedBy(userID uuid.UUID) bool {
	return t.RequesterID == userID
}

// IsAssignedTo reports whether the given user is the assigned technician.
func (t *Ticket) IsAssignedTo(userID uuid.UUID) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

func (t *Ticket) touch() {
	now := time.Now().UTC()
	t.UpdatedAt = &now
}
