package ws

import (
	"context"

	"direct-chat-relay/backend/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the relay's OpenTelemetry instruments. Recording is always
// best-effort; a missing meter provider degrades to no-ops.
type Metrics struct {
	connectionsActive metric.Int64UpDownCounter
	messagesRelayed   metric.Int64Counter
	presenceEvents    metric.Int64Counter
}

// NewMetrics creates the relay instruments on the global meter provider
func NewMetrics(log *logger.Logger) *Metrics {
	meter := otel.Meter("direct-chat-relay/ws")

	m := &Metrics{}
	var err error

	m.connectionsActive, err = meter.Int64UpDownCounter("chat_connections_active",
		metric.WithDescription("Open websocket connections"))
	if err != nil {
		log.LogError(err, "Failed to create connections gauge")
	}

	m.messagesRelayed, err = meter.Int64Counter("chat_messages_relayed_total",
		metric.WithDescription("Messages persisted through the relay"))
	if err != nil {
		log.LogError(err, "Failed to create messages counter")
	}

	m.presenceEvents, err = meter.Int64Counter("chat_presence_events_total",
		metric.WithDescription("Presence transitions broadcast to peers"))
	if err != nil {
		log.LogError(err, "Failed to create presence counter")
	}

	return m
}

// ConnectionOpened records a new connection
func (m *Metrics) ConnectionOpened() {
	if m.connectionsActive != nil {
		m.connectionsActive.Add(context.Background(), 1)
	}
}

// ConnectionClosed records a closed connection
func (m *Metrics) ConnectionClosed() {
	if m.connectionsActive != nil {
		m.connectionsActive.Add(context.Background(), -1)
	}
}

// MessageRelayed records a persisted message and whether a live receiver saw it
func (m *Metrics) MessageRelayed(delivered bool) {
	if m.messagesRelayed != nil {
		m.messagesRelayed.Add(context.Background(), 1,
			metric.WithAttributes(attribute.Bool("delivered", delivered)))
	}
}

// PresenceBroadcast records one presence fan-out
func (m *Metrics) PresenceBroadcast() {
	if m.presenceEvents != nil {
		m.presenceEvents.Add(context.Background(), 1)
	}
}
