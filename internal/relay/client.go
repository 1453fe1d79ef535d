// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package relay

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/msgport/internal/log"
	"github.com/ManuGH/msgport/internal/metrics"
	"github.com/ManuGH/msgport/internal/transport"
	"github.com/ManuGH/msgport/internal/transport/wsport"
)

// client is one websocket peer of the hub. Outbound frames go through a
// bounded queue so a slow peer never blocks a broadcast.
type client struct {
	id     string
	hub    *Hub
	conn   *wsport.Conn
	send   chan string
	logger zerolog.Logger

	stopOnce sync.Once
	stopped  chan struct{}
}

func newClient(h *Hub, queueSize int) *client {
	id := uuid.NewString()
	return &client{
		id:      id,
		hub:     h,
		send:    make(chan string, queueSize),
		logger:  h.logger.With().Str(log.FieldClientID, id).Logger(),
		stopped: make(chan struct{}),
	}
}

func (c *client) HandleMessage(msg *transport.MessageEvent) {
	c.hub.fromClient(c, msg)
}

// enqueue reports whether the frame was queued. A full queue drops it.
func (c *client) enqueue(frame string) bool {
	select {
	case c.send <- frame:
		return true
	default:
		metrics.IncTransportDrop("relay", "client_queue_full")
		c.logger.Debug().Str("event", "relay.client_queue_full").Msg("dropping frame for slow client")
		return false
	}
}

// run writes queued frames until the connection ends, ctx is done or the
// client is stopped, then closes the connection.
func (c *client) run(ctx context.Context) {
	defer func() { _ = c.conn.Close() }()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopped:
			return
		case <-c.conn.Done():
			return
		case frame := <-c.send:
			if err := c.conn.WriteText([]byte(frame)); err != nil {
				c.logger.Debug().Err(err).Str("event", "relay.write_failed").Msg("write to client failed")
				return
			}
		}
	}
}

func (c *client) stop() {
	c.stopOnce.Do(func() { close(c.stopped) })
}
