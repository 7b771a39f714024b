// Package metrics holds the broker's prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsActive tracks currently open client connections.
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stompd",
		Name:      "connections_active",
		Help:      "Number of currently open client connections.",
	})

	// ConnectionsTotal counts accepted client connections.
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stompd",
		Name:      "connections_total",
		Help:      "Total client connections accepted.",
	})

	// FramesDecoded counts frames decoded from client streams.
	FramesDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stompd",
		Name:      "frames_decoded_total",
		Help:      "Total frames decoded from clients.",
	})

	// FramesSent counts frames written to clients.
	FramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stompd",
		Name:      "frames_sent_total",
		Help:      "Total frames written to clients.",
	})

	// MessagesDelivered counts per-subscriber MESSAGE deliveries.
	MessagesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stompd",
		Name:      "messages_delivered_total",
		Help:      "Total MESSAGE frames delivered to subscribers.",
	})

	// ProtocolErrors counts ERROR frames issued to clients.
	ProtocolErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stompd",
		Name:      "protocol_errors_total",
		Help:      "Total protocol errors that terminated a session.",
	})
)
