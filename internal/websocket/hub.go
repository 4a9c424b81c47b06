package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"neurphys/internal/infrastructure"
)

// Event types pushed to browser clients.
const (
	EventConnection        = "connection"
	EventOperationSnapshot = "operation:snapshot"
	EventStatus            = "status"
	EventError             = "error"
)

// Hub maintains the set of active clients and broadcasts messages to them.
// Operation progress reaches the hub through BroadcastUpdate, which the
// operations status broadcaster calls with complete pipeline snapshots.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	totalConnections int64
	messagesSent     int64
	messagesReceived int64

	quit    chan struct{}
	running bool
}

// NewHub creates a hub. The hub does nothing until Start is called.
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

// Start launches the hub loop. Safe to call more than once.
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

// Run is the hub's main loop. Start runs it in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
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

	if m := GetOTelMetrics(); m != nil {
		m.RecordConnection(ctx)
		m.RecordClientCount(ctx, int64(count))
	}

	greeting := map[string]interface{}{
		"type": EventConnection,
		"data": map[string]interface{}{
			"status":    "connected",
			"client_id": client.id,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if client.traceID != "" {
		greeting["trace_id"] = client.traceID
	}

	jsonData, err := json.Marshal(greeting)
	if err != nil {
		return
	}
	select {
	case client.send <- jsonData:
	default:
		h.logger.WarnContext(ctx, "Failed to send connection message - client buffer full",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := context.Background()
	if client.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, client.traceID)
	}

	h.logger.InfoContext(ctx, "Client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))

	if m := GetOTelMetrics(); m != nil {
		m.RecordDisconnection(ctx, time.Since(client.connectedAt))
		m.RecordClientCount(ctx, int64(count))
	}
}

func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	successCount := 0
	failCount := 0

	for _, client := range clients {
		select {
		case client.send <- message:
			successCount++
		default:
			failCount++
			// Slow consumer; drop the connection rather than block the hub.
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()

			h.logger.Warn("Client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}

	h.mu.Lock()
	h.messagesSent += int64(successCount)
	h.mu.Unlock()

	if failCount > 0 {
		h.logger.Warn("Some clients failed to receive broadcast",
			slog.Int("success_count", successCount),
			slog.Int("fail_count", failCount))
	}

	if m := GetOTelMetrics(); m != nil {
		m.RecordBroadcast(context.Background(), int64(len(clients)), int64(failCount))
	}
}

// BroadcastUpdate sends an event to all connected clients. Snapshot events
// carry the complete operation state in data; other events get the step and
// status folded into the envelope.
func (h *Hub) BroadcastUpdate(eventType, step, status string, data interface{}) {
	message := map[string]interface{}{
		"type":      eventType,
		"data":      data,
		"timestamp": time.Now().Format(time.RFC3339),
	}

	if eventType != EventOperationSnapshot && eventType != "" {
		message["step"] = step
		message["status"] = status
	}

	h.broadcastJSON(message)
}

// BroadcastStatus sends a plain status message to all clients.
func (h *Hub) BroadcastStatus(status, text string) {
	h.broadcastJSON(map[string]interface{}{
		"type": EventStatus,
		"data": map[string]interface{}{
			"status":  status,
			"message": text,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// BroadcastError sends a structured error message to all clients.
func (h *Hub) BroadcastError(code, text, step string, recoverable bool) {
	h.broadcastJSON(map[string]interface{}{
		"type": EventError,
		"data": map[string]interface{}{
			"code":        code,
			"message":     text,
			"step":        step,
			"recoverable": recoverable,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *Hub) broadcastJSON(message map[string]interface{}) {
	jsonData, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("error", err.Error()),
			slog.Any("message_type", message["type"]))
		return
	}

	select {
	case h.broadcast <- jsonData:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Stop gracefully stops the hub and closes all client connections.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Stats returns a snapshot of hub counters for the health endpoint.
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"messages_received": h.messagesReceived,
	}
}
