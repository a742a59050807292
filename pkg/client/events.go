// Package client is a Go client for the helpdesk realtime API. It keeps a
// websocket session alive across drops, replays room joins after each
// reconnect, and dispatches server events to registered handlers.
package client

// Server-to-client event kinds.
const (
	EventNewTicket          = "new_ticket"
	EventNewReply           = "new_reply"
	EventTicketUpdated      = "ticket_updated"
	EventReplySent          = "reply_sent"
	EventTicketForwarded    = "ticket_forwarded"
	EventForwardedToYou     = "ticket_forwarded_to_you"
	EventTicketTakenOver    = "ticket_taken_over"
	EventTicketReassigned   = "ticket_reassigned"
	EventTechnicianAssigned = "technician_assigned"
	EventStatusChanged      = "ticket_status_changed"
	EventPriorityChanged    = "ticket_priority_changed"
	EventTicketBookmarked   = "ticket_bookmarked"
	EventTicketReferred     = "ticket_referred"
	EventReferredToDirector = "ticket_referred_to_director"
	EventReferredToYou      = "ticket_referred_to_you"
	EventTyping             = "typing"
	EventStopTyping         = "stop_typing"
)

// Acknowledgement messages sent by the server after joins.
const (
	EventJoinedDashboard = "joined_dashboard"
	EventJoinedUserRoom  = "joined_user_room"
	EventJoinedRoleRoom  = "joined_role_room"
	EventJoinedTicket    = "joined_ticket"
	EventJoinError       = "join_error"
)

// Client-to-server control messages.
const (
	msgJoinDashboard = "join_dashboard"
	msgJoinUserRoom  = "join_user_room"
	msgJoinRoleRoom  = "join_role_room"
	msgJoinTicket    = "join_ticket"
	msgLeaveTicket   = "leave_ticket"
	msgTyping        = "typing"
	msgStopTyping    = "stop_typing"
)

// Payload is the opaque key/value mapping carried by server events.
type Payload map[string]any

// Envelope is the wire format in both directions.
type Envelope struct {
	Event string  `json:"event"`
	Data  Payload `json:"data,omitempty"`
}
