// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransportDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "msgport_transport_dropped_total",
		Help: "Total number of raw messages dropped by a transport, by reason",
	}, []string{"transport", "reason"})

	TransportDeliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "msgport_transport_delivered_total",
		Help: "Total number of raw messages handed to transport handlers",
	}, []string{"transport"})
)

// IncTransportDrop records a dropped raw message.
func IncTransportDrop(transport, reason string) {
	if transport == "" {
		transport = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	TransportDroppedTotal.WithLabelValues(transport, reason).Inc()
}

// IncTransportDelivered records a raw message handed to handlers.
func IncTransportDelivered(transport string) {
	if transport == "" {
		transport = "unknown"
	}
	TransportDeliveredTotal.WithLabelValues(transport).Inc()
}
