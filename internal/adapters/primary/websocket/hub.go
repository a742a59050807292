package websocket

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
	apperrors "github.com/autoassistgroup/helpdesk-backend/internal/core/errors"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/ports"
)

// Hub is the room registry and event broadcaster. It tracks which
// connections belong to which rooms and fans ticket events out to them.
//
// Room membership is ephemeral: nothing survives a disconnect, and a
// reconnecting client is expected to re-join its rooms itself.
type Hub struct {
	// rooms maps a room name to its member connections
	rooms map[domain.Room]map[*Client]bool

	// clients is the set of all registered connections
	clients map[*Client]bool

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// mu protects the rooms and clients maps. Publish takes it
	// exclusively so events hit each room's members in call order.
	mu sync.RWMutex

	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[domain.Room]map[*Client]bool),
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Run starts the hub's registration loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)
		}
	}
}

// Publish delivers an event to every connection in the event's target
// rooms and returns the number of connections it was queued for. A
// connection appearing in several target rooms receives the event once.
// Connections whose send buffer is full are skipped; reconnect plus
// rejoin is the recovery path, not redelivery.
func (h *Hub) Publish(event domain.TicketEvent) int {
	return h.publish(event, nil)
}

// PublishExcept behaves like Publish but skips one connection. Used for
// typing relays so the sender does not echo its own indicator.
func (h *Hub) PublishExcept(event domain.TicketEvent, except *Client) int {
	return h.publish(event, except)
}

func (h *Hub) publish(event domain.TicketEvent, except *Client) int {
	// The exclusive lock is held through the sends: joins observed
	// before publish returns see the event, joins after do not, and
	// concurrent publishes cannot interleave their queue pushes, which
	// keeps delivery FIFO per room. Sends never block because each
	// client's queue is buffered and full queues are skipped.
	h.mu.Lock()
	recipients := make(map[*Client]bool)
	for _, room := range event.Rooms {
		for client := range h.rooms[room] {
			if client == except {
				continue
			}
			recipients[client] = true
		}
	}

	delivered := 0
	msg := Envelope{Event: string(event.Kind), Data: event.Payload}
	for client := range recipients {
		select {
		case client.Send <- msg:
			delivered++
		default:
			h.logger.Warn("client send buffer full, dropping event",
				"event", string(event.Kind),
				"conn_id", client.ConnID.String())
		}
	}
	h.mu.Unlock()

	h.logger.Debug("event published",
		"event", string(event.Kind),
		"rooms", len(event.Rooms),
		"delivered", delivered)
	return delivered
}

// registerClient adds a connection to the hub
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	h.logger.Info("client registered",
		"conn_id", client.ConnID.String(),
		"user_id", client.UserID.String(),
		"total_connections", len(h.clients))
}

// unregisterClient removes a connection from the hub and releases every
// room membership it held.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return
	}
	delete(h.clients, client)

	for _, room := range client.Rooms() {
		h.removeFromRoom(client, room)
	}

	client.CloseSend()

	h.logger.Info("client unregistered",
		"conn_id", client.ConnID.String(),
		"user_id", client.UserID.String())
}

// JoinDashboard puts the connection in the shared dashboard room.
func (h *Hub) JoinDashboard(client *Client) domain.Room {
	room := domain.DashboardRoom()
	h.join(client, room)
	return room
}

// JoinUserRoom puts the connection in a personal room. The room is
// derived from the requested user ID when given, otherwise from the
// identity established at handshake. With neither, the join is
// rejected. Only staff may name a room other than their own; user rooms
// carry targeted events like ticket_forwarded_to_you, so a member
// naming another user's room is refused.
func (h *Hub) JoinUserRoom(client *Client, userID *uuid.UUID) (domain.Room, error) {
	id := client.UserID
	if userID != nil {
		id = *userID
	}
	if id == uuid.Nil {
		return "", apperrors.ErrNoIdentity
	}
	if id != client.UserID && !client.Role.IsStaff() {
		return "", apperrors.ErrRoomForbidden
	}

	room := domain.UserRoom(id)
	h.join(client, room)
	return room, nil
}

// JoinRoleRoom puts the connection in the broadcast room for its role,
// falling back to the handshake identity when no role is supplied. Role
// rooms are staff-only, and a connection may only join the room for its
// own role.
func (h *Hub) JoinRoleRoom(client *Client, role domain.Role) (domain.Room, error) {
	r := client.Role
	if role != "" {
		r = role
	}
	if r == "" {
		return "", apperrors.ErrNoIdentity
	}
	if !client.Role.IsStaff() || r != client.Role {
		return "", apperrors.ErrRoomForbidden
	}

	room := domain.RoleRoom(r)
	h.join(client, room)
	return room, nil
}

// JoinTicket puts the connection in a ticket's room.
func (h *Hub) JoinTicket(client *Client, ticketID int64) domain.Room {
	room := domain.TicketRoom(ticketID)
	h.join(client, room)
	return room
}

// LeaveTicket removes the connection from a ticket's room. Leaving a
// room the connection is not in is a no-op.
func (h *Hub) LeaveTicket(client *Client, ticketID int64) {
	h.leave(client, domain.TicketRoom(ticketID))
}

// join adds a connection to a room. Joining twice is idempotent.
func (h *Hub) join(client *Client, room domain.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
	client.addRoom(room)

	h.logger.Debug("client joined room",
		"conn_id", client.ConnID.String(),
		"room", string(room))
}

func (h *Hub) leave(client *Client, room domain.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoom(client, room)
	client.removeRoom(room)

	h.logger.Debug("client left room",
		"conn_id", client.ConnID.String(),
		"room", string(room))
}

// removeFromRoom drops a client from a room's member set, deleting the
// room when it empties. Caller must hold h.mu.
func (h *Hub) removeFromRoom(client *Client, room domain.Room) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, client)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// MembersOf returns the number of connections currently in a room.
func (h *Hub) MembersOf(room domain.Room) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// RoomCount returns the number of rooms with at least one member.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// ClientCount returns the total number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsUserConnected reports whether any registered connection carries the
// given user identity.
func (h *Hub) IsUserConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.UserID == userID {
			return true
		}
	}
	return false
}
