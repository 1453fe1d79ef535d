// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RelayClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "msgport_relay_clients",
		Help: "Number of websocket clients connected to the relay hub",
	})

	RelayMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "msgport_relay_messages_total",
		Help: "Total number of frames moved by the relay hub, by direction",
	}, []string{"direction"})
)

// IncRelayMessage records a frame moved by the hub ("in", "out", "rebroadcast").
func IncRelayMessage(direction string) {
	RelayMessagesTotal.WithLabelValues(direction).Inc()
}
