// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package relay

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ManuGH/msgport/internal/event"
	"github.com/ManuGH/msgport/internal/log"
	"github.com/ManuGH/msgport/internal/port"
	"github.com/ManuGH/msgport/internal/transport"
)

// Event types the service speaks.
const (
	EventPing  = "ping"
	EventPong  = "pong"
	EventReady = "relay.ready"
	EventStats = "relay.stats"
)

// Service is the relay's own participant on the bus. It answers ping with
// pong, reports client counts on relay.stats and announces itself with
// relay.ready.
type Service struct {
	dispatcher *port.Dispatcher
	version    string
	clients    func() int
	logger     zerolog.Logger

	onPing  *event.Listener
	onStats *event.Listener
	onEcho  *event.Listener
}

// NewService attaches a dispatcher to target. clients may be nil.
func NewService(target transport.Target, version string, clients func() int) *Service {
	logger := log.WithComponent("relay.service")
	s := &Service{
		dispatcher: port.New(target, port.WithLogger(logger)),
		version:    version,
		clients:    clients,
	}
	s.logger = logger.With().Str(log.FieldDispatcherID, s.dispatcher.ID()).Logger()

	s.onPing = event.NewListener(s.handlePing)
	s.onStats = event.NewListener(s.handleStats)
	s.onEcho = event.NewListener(s.handleEcho)

	s.dispatcher.AddEventListener(EventPing, s.onPing, 0)
	s.dispatcher.AddEventListener(EventStats, s.onStats, 0)
	for _, t := range []string{EventPong, EventReady, EventStats} {
		s.dispatcher.Sender().AddEventListener(t, s.onEcho, 0)
	}
	return s
}

// Dispatcher exposes the underlying port dispatcher.
func (s *Service) Dispatcher() *port.Dispatcher { return s.dispatcher }

// Run announces the service and blocks until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	ready := map[string]any{"version": s.version, "dispatcherId": s.dispatcher.ID()}
	if err := s.dispatcher.DispatchEvent(EventReady, ready); err != nil {
		s.logger.Warn().Err(err).Str("event", "relay.announce_failed").Msg("failed to announce service")
	}
	s.logger.Info().Str("event", "relay.service_started").Msg("relay service started")

	<-ctx.Done()
	return s.Close()
}

// Close detaches the service from the bus.
func (s *Service) Close() error {
	return s.dispatcher.Close()
}

func (s *Service) handlePing(c *event.Call) {
	if err := s.dispatcher.DispatchEvent(EventPong, c.Event.Data); err != nil {
		s.logger.Warn().Err(err).Str("event", "relay.pong_failed").Msg("failed to answer ping")
	}
}

func (s *Service) handleStats(c *event.Call) {
	// A stats event carrying data is a reply from another relay instance.
	if c.Event.Data != nil {
		return
	}
	n := 0
	if s.clients != nil {
		n = s.clients()
	}
	stats := map[string]any{"clients": n, "version": s.version, "dispatcherId": s.dispatcher.ID()}
	if err := s.dispatcher.DispatchEvent(EventStats, stats); err != nil {
		s.logger.Warn().Err(err).Str("event", "relay.stats_failed").Msg("failed to answer stats request")
	}
}

func (s *Service) handleEcho(c *event.Call) {
	s.logger.Debug().
		Str("event", "relay.echo").
		Str(log.FieldEventType, c.Event.Type).
		Msg("observed own event on the bus")
}
