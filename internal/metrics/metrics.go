// Package metrics defines the Prometheus instrumentation for the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store and service metrics
var (
	// SessionsActive tracks the number of sessions registered in the store
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "poker_sessions_active",
			Help: "Number of sessions registered in the store",
		},
	)

	// MutationsTotal tracks session mutations by operation and status
	MutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poker_mutations_total",
			Help: "Session mutations by operation and status",
		},
		[]string{"operation", "status"},
	)
)

// Broker metrics
var (
	// EventsPublishedTotal tracks snapshots published across all topics
	EventsPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "poker_events_published_total",
			Help: "Snapshots published across all session topics",
		},
	)

	// SubscribersActive tracks live broker subscriptions
	SubscribersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "poker_subscribers_active",
			Help: "Live broker subscriptions across all sessions",
		},
	)

	// SubscribersLaggedTotal tracks subscribers evicted for falling behind
	SubscribersLaggedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "poker_subscribers_lagged_total",
			Help: "Subscribers evicted because their delivery buffer overflowed",
		},
	)
)

// WebSocket adapter metrics
var (
	// ConnectedClients tracks currently connected WebSocket clients
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "poker_websocket_connected_clients",
			Help: "Currently connected WebSocket clients across all sessions",
		},
	)

	// SlowClientsEvicted tracks WebSocket clients dropped for slow consumption
	SlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "poker_websocket_slow_clients_evicted_total",
			Help: "WebSocket clients disconnected because their send buffer overflowed",
		},
	)

	// ConnectionsRejected tracks WebSocket connections rejected by limits
	ConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poker_websocket_connections_rejected_total",
			Help: "WebSocket connections rejected by connection limits, by reason",
		},
		[]string{"reason"},
	)
)
