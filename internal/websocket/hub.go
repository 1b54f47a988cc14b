// Package websocket pushes processing progress and master-table updates to
// connected browsers.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"fleetpulse/internal/infrastructure"
	"fleetpulse/pkg/contracts/events"
)

// Message type constants shared with the web frontend, re-exported from the
// events contract for convenience.
const (
	TypeConnection    = events.TypeConnection
	TypeProgress      = events.TypeProgress
	TypeStatus        = events.TypeStatus
	TypeError         = events.TypeError
	TypeMasterUpdated = events.TypeMasterUpdated
)

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Inbound messages from the clients
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Logger instance
	logger *slog.Logger

	// Metrics
	totalConnections int64
	messagesSent     int64

	// Control
	quit    chan struct{}
	running bool
}

// NewHub creates a new Hub instance with dependency injection
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.hub"))

	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger,
		quit:       make(chan struct{}),
	}
}

// Start starts the hub's main loop
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.totalConnections++
			h.mu.Unlock()

			ctx := context.Background()
			if client.traceID != "" {
				ctx = infrastructure.WithTraceID(ctx, client.traceID)
			}

			h.logger.InfoContext(ctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			// Send connection success message to the newly connected client
			connMsg := events.NewEnvelope(TypeConnection, events.ConnectionData{
				Status:   "connected",
				ClientID: client.id,
			})

			jsonData, err := json.Marshal(connMsg)
			if err == nil {
				select {
				case client.send <- jsonData:
				default:
					h.logger.WarnContext(ctx, "Failed to send connection message - client buffer full",
						slog.String("client_id", client.id))
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				count := len(h.clients)
				h.mu.Unlock()

				h.logger.Info("Client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			// Copy clients to avoid holding the lock during sends
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			sentCount := 0
			failCount := 0
			for _, client := range clients {
				select {
				case client.send <- message:
					sentCount++
				default:
					failCount++
					// Client's send channel is full, close it
					h.mu.Lock()
					close(client.send)
					delete(h.clients, client)
					h.mu.Unlock()

					h.logger.Warn("Client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}

			if sentCount > 0 {
				h.mu.Lock()
				h.messagesSent += int64(sentCount)
				h.mu.Unlock()
			}

			if failCount > 0 {
				h.logger.Warn("Some clients failed to receive broadcast",
					slog.Int("client_count", len(clients)),
					slog.Int("fail_count", failCount))
			}
		}
	}
}

// BroadcastProgress reports pipeline progress for an upload being processed
func (h *Hub) BroadcastProgress(stage string, percent int, message string) {
	h.broadcastJSON(events.NewEnvelope(TypeProgress, events.ProgressData{
		Stage:   stage,
		Percent: percent,
		Message: message,
	}))
}

// BroadcastStatus sends a status update message
func (h *Hub) BroadcastStatus(status, message string) {
	h.broadcastJSON(events.NewEnvelope(TypeStatus, events.StatusData{
		Status:  status,
		Message: message,
	}))
}

// BroadcastError sends a structured error message
func (h *Hub) BroadcastError(code, message, stage string, recoverable bool) {
	h.broadcastJSON(events.NewEnvelope(TypeError, events.ErrorData{
		Code:        code,
		Message:     message,
		Stage:       stage,
		Recoverable: recoverable,
	}))
}

// BroadcastMasterUpdated notifies clients that a merge changed the master
// table, so open dashboards refetch it.
func (h *Hub) BroadcastMasterUpdated(activeWeeks, totalVolume int, adopted []int) {
	h.broadcastJSON(events.NewEnvelope(TypeMasterUpdated, events.MasterUpdatedData{
		ActiveWeeks:  activeWeeks,
		TotalVolume:  totalVolume,
		AdoptedWeeks: adopted,
	}))
}

// broadcastJSON is a helper method to send JSON messages
func (h *Hub) broadcastJSON(message events.Envelope) {
	jsonData, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", message.Type))
		return
	}

	select {
	case h.broadcast <- jsonData:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop gracefully stops the hub
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)

	// Close all client connections
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// GetHubMetrics returns current hub metrics
func (h *Hub) GetHubMetrics() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
	}
}
