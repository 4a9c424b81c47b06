package websocket

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"neurphys/internal/infrastructure"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection, behind an interface for testing
	conn Connection

	// Buffered channel of outbound messages
	send chan []byte

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	logger *slog.Logger

	messagesSent     int64
	messagesReceived int64
}

// NewClient wraps a gorilla connection in a Client.
func NewClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	return NewClientWithConnection(hub, WrapConnection(conn), logger)
}

// NewClientWithConnection creates a Client over any Connection. Tests use
// this to inject fake connections.
func NewClientWithConnection(hub *Hub, conn Connection, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	id := uuid.New().String()
	logger = logger.With(
		slog.String("component", "websocket.client"),
		slog.String("client_id", id),
	)

	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 256),
		id:          id,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		logger:      logger,
	}
}

// NewClientWithTrace creates a Client carrying the request's trace ID so hub
// logs can be correlated with the HTTP upgrade.
func NewClientWithTrace(hub *Hub, conn *websocket.Conn, traceID string, logger *slog.Logger) *Client {
	client := NewClient(hub, conn, logger)
	client.traceID = traceID
	client.logger = client.logger.With(slog.String("trace_id", traceID))
	return client
}

func (c *Client) ctx() context.Context {
	ctx := context.Background()
	if c.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, c.traceID)
	}
	return ctx
}

// ReadPump pumps messages from the websocket connection to the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.logger.InfoContext(c.ctx(), "WebSocket client disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)),
			slog.Int64("messages_received", c.messagesReceived))
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.ErrorContext(c.ctx(), "Unexpected WebSocket close error",
					slog.String("error", err.Error()))
			}
			break
		}
		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))

		c.messagesReceived++
		c.hub.mu.Lock()
		c.hub.messagesReceived++
		c.hub.mu.Unlock()

		if m := GetOTelMetrics(); m != nil {
			m.RecordMessageReceived(c.ctx(), int64(len(message)))
		}

		// Heartbeats from the browser keep the connection alive; the pong
		// handler already extended the read deadline.
		if string(message) == `{"type":"heartbeat"}` {
			c.logger.Debug("Heartbeat received")
			continue
		}

		// Clients do not send commands over the socket; everything else
		// arrives via the HTTP API.
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.InfoContext(c.ctx(), "WebSocket write pump stopped",
			slog.Int64("messages_sent", c.messagesSent))
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.writeFrame(message); err != nil {
				return
			}

			// Drain any queued messages as separate frames
			n := len(c.send)
			for i := 0; i < n; i++ {
				select {
				case msg := <-c.send:
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.writeFrame(msg); err != nil {
						return
					}
				default:
				}
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.ctx(), "Failed to send ping message",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}

func (c *Client) writeFrame(message []byte) error {
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.ErrorContext(c.ctx(), "Error writing message to WebSocket",
			slog.String("error", err.Error()))
		return err
	}

	c.messagesSent++
	if m := GetOTelMetrics(); m != nil {
		m.RecordMessageSent(c.ctx(), int64(len(message)))
	}
	return nil
}

// ServeWS registers an upgraded connection with the hub and starts its pumps.
func ServeWS(hub *Hub, conn *websocket.Conn) {
	client := NewClient(hub, conn, nil)
	client.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
