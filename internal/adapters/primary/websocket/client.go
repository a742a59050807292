package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/autoassistgroup/helpdesk-backend/internal/core/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Outbound queue depth per connection.
	sendBufferSize = 256
)

// Envelope is the wire format in both directions: a message name plus
// an opaque payload.
type Envelope struct {
	Event string         `json:"event"`
	Data  domain.Payload `json:"data,omitempty"`
}

// Inbound control messages.
const (
	msgJoinDashboard = "join_dashboard"
	msgJoinUserRoom  = "join_user_room"
	msgJoinRoleRoom  = "join_role_room"
	msgJoinTicket    = "join_ticket"
	msgLeaveTicket   = "leave_ticket"
	msgTyping        = "typing"
	msgStopTyping    = "stop_typing"
)

// Outbound acknowledgements.
const (
	ackJoinedDashboard = "joined_dashboard"
	ackJoinedUserRoom  = "joined_user_room"
	ackJoinedRoleRoom  = "joined_role_room"
	ackJoinedTicket    = "joined_ticket"
	msgJoinError       = "join_error"
)

// Client is one live connection session: the websocket handle, the
// identity established at handshake, and the rooms it has joined.
// Memberships die with the connection; the remote client re-joins what
// it needs after reconnecting.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan Envelope

	// ConnID identifies this connection; a user with several tabs has
	// several clients with distinct ConnIDs.
	ConnID uuid.UUID

	// Identity from the handshake token.
	UserID   uuid.UUID
	UserName string
	Role     domain.Role

	// rooms holds this connection's current memberships
	rooms map[domain.Room]bool

	// closeOnce ensures the Send channel is only closed once
	closeOnce sync.Once

	// mu protects the rooms map
	mu sync.RWMutex

	logger *slog.Logger
}

// NewClient creates a new connection session
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, userName string, role domain.Role, logger *slog.Logger) *Client {
	connID := uuid.New()
	return &Client{
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan Envelope, sendBufferSize),
		ConnID:   connID,
		UserID:   userID,
		UserName: userName,
		Role:     role,
		rooms:    make(map[domain.Room]bool),
		logger: logger.With(
			"conn_id", connID.String(),
			"user_id", userID.String()),
	}
}

// CloseSend safely closes the Send channel exactly once
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

func (c *Client) addRoom(room domain.Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[room] = true
}

func (c *Client) removeRoom(room domain.Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, room)
}

// InRoom reports whether the connection is currently in a room.
func (c *Client) InRoom(room domain.Room) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[room]
}

// Rooms returns a copy of the connection's current memberships.
func (c *Client) Rooms() []domain.Room {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rooms := make([]domain.Room, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncoming(message)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel. Send close message.
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.writeJSON(msg); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// writeJSON writes a JSON message to the websocket connection
func (c *Client) writeJSON(msg Envelope) error {
	w, err := c.Conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(msg); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// --- Incoming Message Handling ---

type inboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinUserRoomData struct {
	UserID *uuid.UUID `json:"user_id,omitempty"`
}

type joinRoleRoomData struct {
	Role string `json:"role,omitempty"`
}

type ticketRoomData struct {
	TicketID int64 `json:"ticket_id"`
}

type typingData struct {
	TicketID int64  `json:"ticket_id"`
	UserName string `json:"user_name"`
}

// handleIncoming processes control messages received from the client
func (c *Client) handleIncoming(message []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Event {
	case msgJoinDashboard:
		c.Hub.JoinDashboard(c)
		c.enqueue(Envelope{Event: ackJoinedDashboard})

	case msgJoinUserRoom:
		var data joinUserRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil && len(msg.Data) > 0 {
			c.logger.Warn("failed to unmarshal join_user_room data", "error", err)
			return
		}
		room, err := c.Hub.JoinUserRoom(c, data.UserID)
		if err != nil {
			c.rejectJoin(msgJoinUserRoom, err)
			return
		}
		c.enqueue(Envelope{Event: ackJoinedUserRoom, Data: domain.Payload{"room": string(room)}})

	case msgJoinRoleRoom:
		var data joinRoleRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil && len(msg.Data) > 0 {
			c.logger.Warn("failed to unmarshal join_role_room data", "error", err)
			return
		}
		room, err := c.Hub.JoinRoleRoom(c, domain.Role(data.Role))
		if err != nil {
			c.rejectJoin(msgJoinRoleRoom, err)
			return
		}
		c.enqueue(Envelope{Event: ackJoinedRoleRoom, Data: domain.Payload{"room": string(room)}})

	case msgJoinTicket:
		var data ticketRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.logger.Warn("failed to unmarshal join_ticket data", "error", err)
			return
		}
		if data.TicketID <= 0 {
			c.logger.Warn("invalid ticket ID in join request", "ticket_id", data.TicketID)
			return
		}
		c.Hub.JoinTicket(c, data.TicketID)
		c.enqueue(Envelope{Event: ackJoinedTicket, Data: domain.Payload{"ticket_id": data.TicketID}})

	case msgLeaveTicket:
		var data ticketRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.logger.Warn("failed to unmarshal leave_ticket data", "error", err)
			return
		}
		c.Hub.LeaveTicket(c, data.TicketID)

	case msgTyping:
		var data typingData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.logger.Warn("failed to unmarshal typing data", "error", err)
			return
		}
		name := data.UserName
		if name == "" {
			name = c.UserName
		}
		c.Hub.PublishExcept(domain.TypingEvent(data.TicketID, c.UserID, name), c)

	case msgStopTyping:
		var data ticketRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.logger.Warn("failed to unmarshal stop_typing data", "error", err)
			return
		}
		c.Hub.PublishExcept(domain.StopTypingEvent(data.TicketID, c.UserID), c)

	default:
		c.logger.Debug("received unknown message", "event", msg.Event)
	}
}

// rejectJoin reports a failed join back to the client without touching
// room state.
func (c *Client) rejectJoin(request string, err error) {
	c.logger.Warn("join rejected", "request", request, "error", err)
	c.enqueue(Envelope{Event: msgJoinError, Data: domain.Payload{
		"request": request,
		"error":   err.Error(),
	}})
}

// enqueue queues an outbound message, dropping it when the buffer is full.
func (c *Client) enqueue(msg Envelope) {
	select {
	case c.Send <- msg:
	default:
		c.logger.Warn("send buffer full, dropping message", "event", msg.Event)
	}
}
