// Package metrics exposes the Prometheus collectors of the bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActivePeerConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rtcbridge_active_peer_connections",
		Help: "Number of registered peer connections",
	})

	PeerConnectionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rtcbridge_peer_connections_created_total",
		Help: "Total number of peer connections created",
	})

	ActiveDataChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rtcbridge_active_data_channels",
		Help: "Number of data channels tracked by live connections",
	})

	NegotiationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtcbridge_negotiation_failures_total",
		Help: "Total number of failed negotiation operations",
	}, []string{"op", "code"})

	EventsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtcbridge_events_delivered_total",
		Help: "Total number of events delivered to listeners",
	}, []string{"event"})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rtcbridge_events_dropped_total",
		Help: "Total number of events dropped before delivery",
	}, []string{"reason"})

	ActiveSignalConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rtcbridge_active_signal_connections",
		Help: "Number of open WebSocket signal connections",
	})
)
