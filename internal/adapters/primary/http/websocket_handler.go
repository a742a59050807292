package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	realtime "github.com/autoassistgroup/helpdesk-backend/internal/adapters/primary/websocket"
	"github.com/autoassistgroup/helpdesk-backend/internal/auth"
	"github.com/autoassistgroup/helpdesk-backend/internal/config"
)

// WebSocketHandler handles WebSocket connection upgrades
type WebSocketHandler struct {
	hub      *realtime.Hub
	tm       *auth.TokenManager
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *realtime.Hub,
	tm *auth.TokenManager,
	cfg *config.Config,
	logger *slog.Logger,
) *WebSocketHandler {
	handler := &WebSocketHandler{
		hub:    hub,
		tm:     tm,
		logger: logger,
	}

	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin:     handler.makeOriginChecker(cfg),
	}

	return handler
}

// makeOriginChecker builds the CheckOrigin function for the upgrader.
// Development allows everything with a warning; elsewhere the origin
// host must match the configured list. An absent Origin header passes,
// since non-browser clients never send one.
func (h *WebSocketHandler) makeOriginChecker(cfg *config.Config) func(r *http.Request) bool {
	allowed := cfg.WebSocket.AllowedOrigins

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		if cfg.IsDevelopment() {
			if origin != "" {
				h.logger.Warn("allowing websocket connection in development mode",
					"origin", origin,
					"remote_addr", r.RemoteAddr,
				)
			}
			return true
		}

		if origin == "" {
			return true
		}

		parsed, err := url.Parse(origin)
		if err != nil {
			h.logger.Warn("failed to parse websocket origin", "origin", origin, "error", err)
			return false
		}

		if originAllowed(parsed.Host, allowed) {
			return true
		}

		h.logger.Warn("websocket connection rejected due to origin",
			"origin", origin,
			"remote_addr", r.RemoteAddr,
			"allowed_origins", allowed,
		)
		return false
	}
}

// originAllowed matches host against the allow list. Entries of the
// form "*.example.com" match any subdomain plus the bare domain.
func originAllowed(host string, allowed []string) bool {
	for _, entry := range allowed {
		if bare, ok := strings.CutPrefix(entry, "*."); ok {
			if host == bare || strings.HasSuffix(host, "."+bare) {
				return true
			}
			continue
		}
		if host == entry {
			return true
		}
	}
	return false
}

// ServeHTTP handles WebSocket connection requests
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	// Browsers cannot set headers on websocket requests, so the token
	// arrives as a query parameter instead of an Authorization header.
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		h.logger.Warn("websocket connection rejected: missing token",
			"request_id", requestID,
			"remote_addr", r.RemoteAddr,
		)
		http.Error(w, "Missing authentication token", http.StatusUnauthorized)
		return
	}

	claims, err := h.tm.ValidateToken(tokenString)
	if err != nil {
		h.logger.Warn("websocket connection rejected: invalid token",
			"request_id", requestID,
			"remote_addr", r.RemoteAddr,
			"error", err,
		)
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket connection",
			"request_id", requestID,
			"user_id", claims.UserID,
			"error", err,
		)
		return
	}

	h.logger.Info("websocket connection established",
		"request_id", requestID,
		"user_id", claims.UserID,
		"remote_addr", r.RemoteAddr,
	)

	client := realtime.NewClient(h.hub, conn, claims.UserID, claims.FullName, claims.Role, h.logger)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
