package services

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	ws "github.com/krshsl/rentdesk/websocket"
)

const (
	EventContractCreated       = "contract.created"
	EventContractUpdated       = "contract.updated"
	EventContractStatusChanged = "contract.status_changed"
	EventContractOverdue       = "contract.overdue"
	EventContractDeleted       = "contract.deleted"
	EventVehicleCreated        = "vehicle.created"
	EventVehicleUpdated        = "vehicle.updated"
	EventVehicleDeleted        = "vehicle.deleted"
)

// EventPublisher receives change notifications; *ws.Hub is the live implementation
type EventPublisher interface {
	Publish(event ws.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(ws.Event) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

func newEvent(eventType, entity, id string, data interface{}) ws.Event {
	return ws.Event{Type: eventType, Entity: entity, ID: id, Data: data}
}

// WebSocketHandler upgrades authenticated requests and attaches them to the event hub
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(hub *ws.Hub, allowedOrigins string) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return checkOrigin(r, allowedOrigins)
			},
		},
	}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	// Upgrade writes its own error response
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	slog.Info("WebSocket connection established", "user_id", user.ID, "email", user.Email)
	client := h.hub.RegisterClient(conn, user.ID)
	go client.WritePump()
	go client.ReadPump()
}

// checkOrigin validates the origin of WebSocket connections to prevent CSRF attacks
func checkOrigin(r *http.Request, allowedOriginsStr string) bool {
	origin := r.Header.Get("Origin")

	// If no allowed origins are configured, deny all requests for security
	if allowedOriginsStr == "" {
		slog.Warn("WebSocket connection rejected: no allowed origins configured", "origin", origin)
		return false
	}

	for _, allowed := range strings.Split(allowedOriginsStr, ",") {
		if strings.TrimSpace(allowed) == origin {
			return true
		}
	}

	slog.Warn("WebSocket connection rejected: origin not allowed", "origin", origin, "allowed_origins", allowedOriginsStr)
	return false
}
