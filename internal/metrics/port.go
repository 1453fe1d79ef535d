// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Inbound routes.
const (
	RouteSender   = "sender"
	RouteReceiver = "receiver"
)

var (
	InboundTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "msgport_inbound_total",
		Help: "Total number of inbound envelopes routed, by channel (sender echo or receiver)",
	}, []string{"route"})

	InboundDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "msgport_inbound_dropped_total",
		Help: "Total number of inbound raw messages ignored, by reason",
	}, []string{"reason"})

	OutboundTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "msgport_outbound_total",
		Help: "Total number of outbound events, by result",
	}, []string{"result"})
)

// IncInbound records an envelope routed to the sender or receiver channel.
func IncInbound(route string) {
	InboundTotal.WithLabelValues(route).Inc()
}

// IncInboundDropped records an ignored inbound raw message.
func IncInboundDropped(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	InboundDroppedTotal.WithLabelValues(reason).Inc()
}

// IncOutbound records an outbound event with its result ("ok", "encode_error", "send_error").
func IncOutbound(result string) {
	OutboundTotal.WithLabelValues(result).Inc()
}
