package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"neurphys/internal/config"
	apierrors "neurphys/internal/errors"
	"neurphys/internal/middleware"
	ws "neurphys/internal/websocket"
)

// WebSocketHandler upgrades HTTP connections and hands them to the hub
type WebSocketHandler struct {
	hub          *ws.Hub
	upgrader     websocket.Upgrader
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *ws.Hub, cfg config.WebSocketConfig, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			// The service binds to localhost and serves its own UI, so
			// cross-origin upgrades are accepted.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "websocket")),
	}
}

// ServeHTTP handles GET /ws
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error to the client.
		h.logger.ErrorContext(ctx, "websocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()))
		return
	}

	traceID := middleware.GetReqID(ctx)
	client := ws.NewClientWithTrace(h.hub, conn, traceID, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
