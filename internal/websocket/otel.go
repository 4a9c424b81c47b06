package websocket

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"neurphys/internal/infrastructure"
)

// OTelMetrics holds the hub's OpenTelemetry instruments.
type OTelMetrics struct {
	connections      metric.Int64Counter
	clients          metric.Int64Gauge
	connectionTime   metric.Float64Histogram
	messagesSent     metric.Int64Counter
	messagesReceived metric.Int64Counter
	bytesSent        metric.Int64Counter
	bytesReceived    metric.Int64Counter
	broadcasts       metric.Int64Counter
	broadcastDrops   metric.Int64Counter
}

// NewOTelMetrics builds the hub instruments from the shared meter.
func NewOTelMetrics(providers *infrastructure.OTelProviders) (*OTelMetrics, error) {
	meter := providers.Meter

	connections, err := meter.Int64Counter("neurphys_ws_connections_total",
		metric.WithDescription("Total WebSocket connections accepted"))
	if err != nil {
		return nil, fmt.Errorf("failed to create connections counter: %w", err)
	}
	clients, err := meter.Int64Gauge("neurphys_ws_clients",
		metric.WithDescription("Currently connected WebSocket clients"))
	if err != nil {
		return nil, fmt.Errorf("failed to create clients gauge: %w", err)
	}
	connectionTime, err := meter.Float64Histogram("neurphys_ws_connection_duration_seconds",
		metric.WithDescription("WebSocket connection lifetime"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create connection duration histogram: %w", err)
	}
	messagesSent, err := meter.Int64Counter("neurphys_ws_messages_sent_total",
		metric.WithDescription("Messages written to WebSocket clients"))
	if err != nil {
		return nil, fmt.Errorf("failed to create sent counter: %w", err)
	}
	messagesReceived, err := meter.Int64Counter("neurphys_ws_messages_received_total",
		metric.WithDescription("Messages read from WebSocket clients"))
	if err != nil {
		return nil, fmt.Errorf("failed to create received counter: %w", err)
	}
	bytesSent, err := meter.Int64Counter("neurphys_ws_bytes_sent_total",
		metric.WithDescription("Bytes written to WebSocket clients"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("failed to create bytes sent counter: %w", err)
	}
	bytesReceived, err := meter.Int64Counter("neurphys_ws_bytes_received_total",
		metric.WithDescription("Bytes read from WebSocket clients"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("failed to create bytes received counter: %w", err)
	}
	broadcasts, err := meter.Int64Counter("neurphys_ws_broadcasts_total",
		metric.WithDescription("Hub broadcasts by outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create broadcasts counter: %w", err)
	}
	broadcastDrops, err := meter.Int64Counter("neurphys_ws_broadcast_drops_total",
		metric.WithDescription("Clients dropped during broadcast for full send buffers"))
	if err != nil {
		return nil, fmt.Errorf("failed to create broadcast drops counter: %w", err)
	}

	return &OTelMetrics{
		connections:      connections,
		clients:          clients,
		connectionTime:   connectionTime,
		messagesSent:     messagesSent,
		messagesReceived: messagesReceived,
		bytesSent:        bytesSent,
		bytesReceived:    bytesReceived,
		broadcasts:       broadcasts,
		broadcastDrops:   broadcastDrops,
	}, nil
}

// RecordConnection counts an accepted connection.
func (m *OTelMetrics) RecordConnection(ctx context.Context) {
	m.connections.Add(ctx, 1)
}

// RecordDisconnection records the lifetime of a closed connection.
func (m *OTelMetrics) RecordDisconnection(ctx context.Context, duration time.Duration) {
	m.connectionTime.Record(ctx, duration.Seconds())
}

// RecordClientCount reports the current number of connected clients.
func (m *OTelMetrics) RecordClientCount(ctx context.Context, count int64) {
	m.clients.Record(ctx, count)
}

// RecordMessageSent counts a frame written to a client.
func (m *OTelMetrics) RecordMessageSent(ctx context.Context, size int64) {
	m.messagesSent.Add(ctx, 1)
	m.bytesSent.Add(ctx, size)
}

// RecordMessageReceived counts a frame read from a client.
func (m *OTelMetrics) RecordMessageReceived(ctx context.Context, size int64) {
	m.messagesReceived.Add(ctx, 1)
	m.bytesReceived.Add(ctx, size)
}

// RecordBroadcast counts a hub broadcast and any clients dropped during it.
func (m *OTelMetrics) RecordBroadcast(ctx context.Context, clients, failed int64) {
	outcome := "delivered"
	if failed > 0 {
		outcome = "partial"
	}
	m.broadcasts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.Int64("clients", clients),
	))
	if failed > 0 {
		m.broadcastDrops.Add(ctx, failed)
	}
}

var globalOTelMetrics *OTelMetrics

// InitOTelMetrics initializes the package-level hub metrics.
func InitOTelMetrics(providers *infrastructure.OTelProviders) error {
	m, err := NewOTelMetrics(providers)
	if err != nil {
		return err
	}
	globalOTelMetrics = m
	return nil
}

// GetOTelMetrics returns the hub metrics, nil when telemetry is not
// initialized. Callers must nil-check.
func GetOTelMetrics() *OTelMetrics {
	return globalOTelMetrics
}
