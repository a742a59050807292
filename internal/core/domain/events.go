package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind is the fixed enumeration of realtime ticket events.
type EventKind string

const (
	EventNewTicket          EventKind = "new_ticket"
	EventNewReply           EventKind = "new_reply"
	EventTicketUpdated      EventKind = "ticket_updated"
	EventReplySent          EventKind = "reply_sent"
	EventTicketForwarded    EventKind = "ticket_forwarded"
	EventForwardedToYou     EventKind = "ticket_forwarded_to_you"
	EventTicketTakenOver    EventKind = "ticket_taken_over"
	EventTicketReassigned   EventKind = "ticket_reassigned"
	EventTechnicianAssigned EventKind = "technician_assigned"
	EventStatusChanged      EventKind = "ticket_status_changed"
	EventPriorityChanged    EventKind = "ticket_priority_changed"
	EventTicketBookmarked   EventKind = "ticket_bookmarked"
	EventTicketReferred     EventKind = "ticket_referred"
	EventReferredToDirector EventKind = "ticket_referred_to_director"
	EventReferredToYou      EventKind = "ticket_referred_to_you"
	EventTyping             EventKind = "typing"
	EventStopTyping         EventKind = "stop_typing"
)

// Payload is the opaque key/value mapping carried by a ticket event.
type Payload map[string]any

// TicketEvent is an immutable record describing a ticket lifecycle change
// to be broadcast. It names its target rooms; the broadcaster resolves
// membership at publish time. Events are never persisted: delivery is
// at-most-once and reconnecting sessions rejoin rooms rather than
// receiving missed events.
type TicketEvent struct {
	Kind    EventKind
	Rooms   []Room
	Payload Payload
}

func eventTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// TicketCreatedPayload carries the fields dashboards need to render a
// freshly submitted ticket.
type TicketCreatedPayload struct {
	Ticket        *Ticket
	RequesterName string
}

// NewTicketEvents announces a new ticket to the dashboard.
func NewTicketEvents(p TicketCreatedPayload) []TicketEvent {
	return []TicketEvent{{
		Kind:  EventNewTicket,
		Rooms: []Room{DashboardRoom()},
		Payload: Payload{
			"ticket_id":      p.Ticket.ID,
			"subject":        p.Ticket.Subject,
			"priority":       string(p.Ticket.Priority),
			"status":         string(p.Ticket.Status),
			"requester_id":   p.Ticket.RequesterID.String(),
			"requester_name": p.RequesterName,
			"timestamp":      eventTimestamp(),
		},
	}}
}

// ReplyPayload carries a posted reply for live thread updates.
type ReplyPayload struct {
	Reply      *Reply
	AuthorName string
}

func replyPayload(p ReplyPayload) Payload {
	return Payload{
		"ticket_id":   p.Reply.TicketID,
		"reply_id":    p.Reply.ID,
		"author_id":   p.Reply.AuthorID.String(),
		"author_name": p.AuthorName,
		"body":        p.Reply.Body,
		"internal":    p.Reply.Internal,
		"timestamp":   p.Reply.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NewReplyEvents pushes a reply to everyone viewing the ticket and
// confirms the send back to the same room for the author's UI.
func NewReplyEvents(p ReplyPayload) []TicketEvent {
	room := TicketRoom(p.Reply.TicketID)
	payload := replyPayload(p)
	return []TicketEvent{
		{Kind: EventNewReply, Rooms: []Room{room}, Payload: payload},
		{Kind: EventReplySent, Rooms: []Room{room}, Payload: payload},
	}
}

// StatusChangedPayload describes a status transition.
type StatusChangedPayload struct {
	TicketID    int64
	OldStatus   TicketStatus
	NewStatus   TicketStatus
	ChangedByID uuid.UUID
	ChangedBy   string
}

// StatusChangedEvents notifies the ticket room and the dashboard, plus a
// generic ticket_updated for list refresh.
func StatusChangedEvents(p StatusChangedPayload) []TicketEvent {
	payload := Payload{
		"ticket_id":       p.TicketID,
		"old_status":      string(p.OldStatus),
		"new_status":      string(p.NewStatus),
		"changed_by_id":   p.ChangedByID.String(),
		"changed_by_name": p.ChangedBy,
		"timestamp":       eventTimestamp(),
	}
	return []TicketEvent{
		{Kind: EventStatusChanged, Rooms: []Room{TicketRoom(p.TicketID), DashboardRoom()}, Payload: payload},
		{Kind: EventTicketUpdated, Rooms: []Room{DashboardRoom()}, Payload: Payload{
			"ticket_id":   p.TicketID,
			"status":      string(p.NewStatus),
			"update_type": "status",
		}},
	}
}

// PriorityChangedPayload describes a priority change.
type PriorityChangedPayload struct {
	TicketID    int64
	OldPriority TicketPriority
	NewPriority TicketPriority
	ChangedByID uuid.UUID
	ChangedBy   string
}

// PriorityChangedEvents mirrors StatusChangedEvents for priority.
func PriorityChangedEvents(p PriorityChangedPayload) []TicketEvent {
	payload := Payload{
		"ticket_id":       p.TicketID,
		"old_priority":    string(p.OldPriority),
		"new_priority":    string(p.NewPriority),
		"changed_by_id":   p.ChangedByID.String(),
		"changed_by_name": p.ChangedBy,
		"timestamp":       eventTimestamp(),
	}
	return []TicketEvent{
		{Kind: EventPriorityChanged, Rooms: []Room{TicketRoom(p.TicketID), DashboardRoom()}, Payload: payload},
		{Kind: EventTicketUpdated, Rooms: []Room{DashboardRoom()}, Payload: Payload{
			"ticket_id":   p.TicketID,
			"priority":    string(p.NewPriority),
			"update_type": "priority",
		}},
	}
}

// BookmarkChangedEvents notifies the dashboard (for reordering) and the
// ticket room when a ticket's importance flag changes.
func BookmarkChangedEvents(ticketID int64, important bool, changedByID uuid.UUID) []TicketEvent {
	payload := Payload{
		"ticket_id":     ticketID,
		"is_important":  important,
		"changed_by_id": changedByID.String(),
		"timestamp":     eventTimestamp(),
	}
	return []TicketEvent{{
		Kind:    EventTicketBookmarked,
		Rooms:   []Room{DashboardRoom(), TicketRoom(ticketID)},
		Payload: payload,
	}}
}

// AssignmentPayload describes a technician assignment.
type AssignmentPayload struct {
	TicketID       int64
	Subject        string
	TechnicianID   uuid.UUID
	TechnicianName string
	AssignedByID   uuid.UUID
	AssignedByName string
}

// TechnicianAssignedEvents notifies the dashboard and the ticket room.
func TechnicianAssignedEvents(p AssignmentPayload) []TicketEvent {
	payload := Payload{
		"ticket_id":        p.TicketID,
		"subject":          p.Subject,
		"technician_id":    p.TechnicianID.String(),
		"technician_name":  p.TechnicianName,
		"assigned_by_id":   p.AssignedByID.String(),
		"assigned_by_name": p.AssignedByName,
		"timestamp":        eventTimestamp(),
	}
	return []TicketEvent{{
		Kind:    EventTechnicianAssigned,
		Rooms:   []Room{DashboardRoom(), TicketRoom(p.TicketID)},
		Payload: payload,
	}}
}

// ForwardPayload describes a ticket handed from one technician to another.
type ForwardPayload struct {
	TicketID           int64
	Subject            string
	FromID             uuid.UUID
	FromName           string
	ToID               uuid.UUID
	ToName             string
	Note               string
	IsDirectorReferral bool
}

func (p ForwardPayload) payload() Payload {
	return Payload{
		"ticket_id":                 p.TicketID,
		"subject":                   p.Subject,
		"forwarded_from_id":         p.FromID.String(),
		"forwarded_from_name":       p.FromName,
		"forwarded_to_id":           p.ToID.String(),
		"forwarded_to_name":         p.ToName,
		"note":                      p.Note,
		"is_tech_director_referral": p.IsDirectorReferral,
		"timestamp":                 eventTimestamp(),
	}
}

// TicketForwardedEvents fans a forward out to the dashboard, the ticket
// room, and the recipient's user room. Director referrals additionally
// alert the technical director role room.
func TicketForwardedEvents(p ForwardPayload) []TicketEvent {
	payload := p.payload()
	events := []TicketEvent{
		{Kind: EventTicketForwarded, Rooms: []Room{DashboardRoom(), TicketRoom(p.TicketID)}, Payload: payload},
		{Kind: EventForwardedToYou, Rooms: []Room{UserRoom(p.ToID)}, Payload: payload},
	}
	if p.IsDirectorReferral {
		events = append(events, TicketEvent{
			Kind:    EventTicketReferred,
			Rooms:   []Room{RoleRoom(RoleTechnicalDirector)},
			Payload: payload,
		})
	}
	return events
}

// TakeoverPayload describes a technician taking over a ticket.
type TakeoverPayload struct {
	TicketID           int64
	Subject            string
	TakenByID          uuid.UUID
	TakenByName        string
	PreviousAssigneeID *uuid.UUID
}

// TicketTakenOverEvents notifies the dashboard and the ticket room, and
// tells the displaced assignee their ticket moved.
func TicketTakenOverEvents(p TakeoverPayload) []TicketEvent {
	payload := Payload{
		"ticket_id":     p.TicketID,
		"subject":       p.Subject,
		"taken_by_id":   p.TakenByID.String(),
		"taken_by_name": p.TakenByName,
		"timestamp":     eventTimestamp(),
	}
	if p.PreviousAssigneeID != nil {
		payload["previous_assignee_id"] = p.PreviousAssigneeID.String()
	}

	events := []TicketEvent{{
		Kind:    EventTicketTakenOver,
		Rooms:   []Room{DashboardRoom(), TicketRoom(p.TicketID)},
		Payload: payload,
	}}
	if p.PreviousAssigneeID != nil {
		events = append(events, TicketEvent{
			Kind:    EventTicketReassigned,
			Rooms:   []Room{UserRoom(*p.PreviousAssigneeID)},
			Payload: payload,
		})
	}
	return events
}

// ReferralPayload describes a ticket escalated to the technical director.
type ReferralPayload struct {
	TicketID       int64
	Subject        string
	ReferredByID   uuid.UUID
	ReferredByName string
	DirectorID     *uuid.UUID
}

// DirectorReferralEvents escalates a ticket: the technical director role
// room and (when known) the director's user room get targeted events, the
// dashboard sees a forward, and the ticket room sees the referral.
func DirectorReferralEvents(p ReferralPayload) []TicketEvent {
	payload := Payload{
		"ticket_id":        p.TicketID,
		"subject":          p.Subject,
		"referred_by_id":   p.ReferredByID.String(),
		"referred_by_name": p.ReferredByName,
		"timestamp":        eventTimestamp(),
	}
	if p.DirectorID != nil {
		payload["tech_director_id"] = p.DirectorID.String()
	}

	dashboardPayload := Payload{
		"ticket_id":                 p.TicketID,
		"subject":                   p.Subject,
		"forwarded_from_id":         p.ReferredByID.String(),
		"forwarded_from_name":       p.ReferredByName,
		"forwarded_to_name":         "Technical Director",
		"is_tech_director_referral": true,
		"timestamp":                 eventTimestamp(),
	}

	events := []TicketEvent{
		{Kind: EventReferredToDirector, Rooms: []Room{RoleRoom(RoleTechnicalDirector)}, Payload: payload},
	}
	if p.DirectorID != nil {
		events = append(events, TicketEvent{
			Kind:    EventReferredToYou,
			Rooms:   []Room{UserRoom(*p.DirectorID)},
			Payload: payload,
		})
	}
	events = append(events,
		TicketEvent{Kind: EventTicketForwarded, Rooms: []Room{DashboardRoom()}, Payload: dashboardPayload},
		TicketEvent{Kind: EventTicketReferred, Rooms: []Room{TicketRoom(p.TicketID)}, Payload: payload},
	)
	return events
}

// TypingEvent relays a typing indicator to a ticket room. The sender's
// own session is excluded by the broadcaster.
func TypingEvent(ticketID int64, userID uuid.UUID, userName string) TicketEvent {
	return TicketEvent{
		Kind:  EventTyping,
		Rooms: []Room{TicketRoom(ticketID)},
		Payload: Payload{
			"ticket_id": ticketID,
			"user_id":   userID.String(),
			"user_name": userName,
		},
	}
}

// StopTypingEvent relays the end of a typing indicator.
func StopTypingEvent(ticketID int64, userID uuid.UUID) TicketEvent {
	return TicketEvent{
		Kind:  EventStopTyping,
		Rooms: []Room{TicketRoom(ticketID)},
		Payload: Payload{
			"ticket_id": ticketID,
			"user_id":   userID.String(),
		},
	}
}
