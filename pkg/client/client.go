package client

import (
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// State is the observable connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

const (
	defaultReconnectAttempts = 5
	defaultReconnectDelay    = 2 * time.Second
	defaultHandshakeTimeout  = 10 * time.Second
	writeTimeout             = 10 * time.Second
)

// Config configures a realtime client. UI concerns (sounds, toasts) are
// the caller's: register handlers and react to the callbacks instead of
// relying on package-level state.
type Config struct {
	// URL of the websocket endpoint, e.g. "ws://localhost:8080/ws".
	URL string

	// Token is the JWT presented during the handshake.
	Token string

	// UserID, when set, names the user room to join instead of the
	// token's own. The server only honors that for staff identities.
	UserID *uuid.UUID

	// Role, when set, joins the role broadcast room on connect. Role
	// rooms are staff-only and the server rejects a role other than
	// the token's own; leave it empty for member sessions.
	Role string

	// MaxReconnectAttempts bounds consecutive failed connection
	// attempts before the client gives up and enters StateError.
	MaxReconnectAttempts int

	// ReconnectDelay is the fixed pause between attempts.
	ReconnectDelay time.Duration

	HandshakeTimeout time.Duration

	// OnConnectError is called for each failed connection attempt.
	OnConnectError func(err error)

	// OnConnectionFailed is called exactly once, when the reconnect
	// budget is exhausted.
	OnConnectionFailed func()

	Logger *slog.Logger
}

// Client is a realtime session that survives connection drops. Ticket
// room membership is tracked locally as the desired set and replayed
// after every reconnect; the server never remembers it.
type Client struct {
	cfg        Config
	dispatcher *Dispatcher
	logger     *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	state   State
	tickets map[int64]bool

	// writeMu serializes frames onto the connection. The underlying
	// websocket supports only one concurrent writer, and sends come
	// from both caller goroutines and the session loop's rejoin.
	writeMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
	failOnce  sync.Once
	wg        sync.WaitGroup
}

// New creates a client. Call Connect to establish the session.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("client: URL is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("client: invalid URL: %w", err)
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaultReconnectAttempts
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		cfg:        cfg,
		dispatcher: NewDispatcher(cfg.Logger),
		logger:     cfg.Logger,
		state:      StateDisconnected,
		tickets:    make(map[int64]bool),
		done:       make(chan struct{}),
	}, nil
}

// On registers a handler for a server event kind.
func (c *Client) On(kind string, handler Handler) *Registration {
	return c.dispatcher.On(kind, handler)
}

// Off removes all handlers for an event kind.
func (c *Client) Off(kind string) {
	c.dispatcher.Off(kind)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect starts the session loop in the background. It returns
// immediately; observe progress through State and the callbacks.
func (c *Client) Connect() {
	c.wg.Add(1)
	go c.run()
}

// Close tears the session down. The desired ticket-room set is discarded
// with the client.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	if c.state != StateError {
		c.state = StateDisconnected
	}
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	c.wg.Wait()
}

// JoinTicket adds a ticket room to the desired set and joins it on the
// live connection. The membership is replayed after every reconnect
// until LeaveTicket or Close.
func (c *Client) JoinTicket(ticketID int64) {
	c.mu.Lock()
	c.tickets[ticketID] = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.send(conn, Envelope{Event: msgJoinTicket, Data: Payload{"ticket_id": ticketID}})
	}
}

// LeaveTicket removes a ticket room from the desired set and leaves it
// on the live connection.
func (c *Client) LeaveTicket(ticketID int64) {
	c.mu.Lock()
	delete(c.tickets, ticketID)
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.send(conn, Envelope{Event: msgLeaveTicket, Data: Payload{"ticket_id": ticketID}})
	}
}

// Typing announces a typing indicator in a ticket room.
func (c *Client) Typing(ticketID int64, userName string) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.send(conn, Envelope{Event: msgTyping, Data: Payload{"ticket_id": ticketID, "user_name": userName}})
	}
}

// StopTyping clears a typing indicator in a ticket room.
func (c *Client) StopTyping(ticketID int64) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.send(conn, Envelope{Event: msgStopTyping, Data: Payload{"ticket_id": ticketID}})
	}
}

func (c *Client) run() {
	defer c.wg.Done()

	attempts := 0
	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.setState(StateConnecting)

		conn, err := c.dial()
		if err != nil {
			attempts++
			c.logger.Warn("connection attempt failed",
				"attempt", attempts,
				"max_attempts", c.cfg.MaxReconnectAttempts,
				"error", err)
			if c.cfg.OnConnectError != nil {
				c.cfg.OnConnectError(err)
			}

			if attempts >= c.cfg.MaxReconnectAttempts {
				c.enterErrorState()
				return
			}
			if !c.sleep(c.cfg.ReconnectDelay) {
				return
			}
			continue
		}

		attempts = 0
		c.mu.Lock()
		c.conn = conn
		c.state = StateConnected
		c.mu.Unlock()

		c.rejoin(conn)
		c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		select {
		case <-c.done:
			return
		default:
		}

		c.setState(StateDisconnected)
		if !c.sleep(c.cfg.ReconnectDelay) {
			return
		}
	}
}

func (c *Client) dial() (*websocket.Conn, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", c.cfg.Token)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.Dial(u.String(), nil)
	return conn, err
}

// rejoin replays the desired room set on a fresh connection: the
// dashboard always, the user room, the role room when configured, and
// every tracked ticket room.
func (c *Client) rejoin(conn *websocket.Conn) {
	c.send(conn, Envelope{Event: msgJoinDashboard})

	userData := Payload{}
	if c.cfg.UserID != nil {
		userData["user_id"] = c.cfg.UserID.String()
	}
	c.send(conn, Envelope{Event: msgJoinUserRoom, Data: userData})

	if c.cfg.Role != "" {
		c.send(conn, Envelope{Event: msgJoinRoleRoom, Data: Payload{"role": c.cfg.Role}})
	}

	c.mu.Lock()
	tickets := make([]int64, 0, len(c.tickets))
	for id := range c.tickets {
		tickets = append(tickets, id)
	}
	c.mu.Unlock()

	for _, id := range tickets {
		c.send(conn, Envelope{Event: msgJoinTicket, Data: Payload{"ticket_id": id}})
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var envelope Envelope
		if err := conn.ReadJSON(&envelope); err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Debug("connection lost", "error", err)
			}
			_ = conn.Close()
			return
		}
		c.dispatcher.Dispatch(envelope.Event, envelope.Data)
	}
}

func (c *Client) send(conn *websocket.Conn, envelope Envelope) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(envelope); err != nil {
		c.logger.Warn("failed to send message", "event", envelope.Event, "error", err)
	}
}

func (c *Client) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// enterErrorState is terminal and fires the failure callback exactly
// once even if the run loop is restarted.
func (c *Client) enterErrorState() {
	c.setState(StateError)
	c.failOnce.Do(func() {
		c.logger.Error("reconnect budget exhausted, giving up")
		if c.cfg.OnConnectionFailed != nil {
			c.cfg.OnConnectionFailed()
		}
	})
}

func (c *Client) sleep(d time.Duration) bool {
	select {
	case <-c.done:
		return false
	case <-time.After(d):
		return true
	}
}
