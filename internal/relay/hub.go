// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package relay runs the message bus daemon: a websocket hub that relays
// envelopes between connected clients, a service dispatcher that answers
// on the same bus, and the HTTP surface around them.
package relay

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/msgport/internal/log"
	"github.com/ManuGH/msgport/internal/metrics"
	"github.com/ManuGH/msgport/internal/telemetry"
	"github.com/ManuGH/msgport/internal/transport"
	"github.com/ManuGH/msgport/internal/transport/wsport"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HubOptions configures a Hub.
type HubOptions struct {
	// Upstream, when set, is the shared bus (typically Redis). Client frames
	// are published there and everything arriving from it is broadcast to all
	// local clients, the publishing client included.
	Upstream transport.Target

	QueueSize    int        // per-client outbound queue
	ReadLimit    int64      // max inbound frame size
	InboundRate  rate.Limit // frames per second per client, 0 disables
	InboundBurst int

	Logger *zerolog.Logger
}

// Hub is a transport.Target over all connected websocket clients.
//
// Without an upstream, a frame from one client is rebroadcast to every other
// client and delivered to the hub's handlers, and PostMessage broadcasts to
// all clients. With an upstream, both paths go through it.
type Hub struct {
	opts     HubOptions
	upgrader websocket.Upgrader
	handlers transport.Handlers
	upstream *upstreamHandler
	logger   zerolog.Logger

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
}

func NewHub(opts HubOptions) *Hub {
	if opts.QueueSize <= 0 {
		opts.QueueSize = transport.DefaultQueueSize
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = wsport.DefaultReadLimit
	}

	h := &Hub{
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  log.WithComponent("relay.hub"),
		clients: make(map[string]*client),
	}
	if opts.Logger != nil {
		h.logger = *opts.Logger
	}
	if opts.Upstream != nil {
		h.upstream = &upstreamHandler{hub: h}
		opts.Upstream.AddMessageHandler(h.upstream)
	}
	return h
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("event", "relay.upgrade_failed").Msg("websocket upgrade failed")
		return
	}
	h.Serve(r.Context(), ws)
}

// Serve attaches ws as a client and blocks until it disconnects, ctx ends or
// the hub closes.
func (h *Hub) Serve(ctx context.Context, ws *websocket.Conn) {
	c := newClient(h, h.opts.QueueSize)
	// Register before reading so replies to the first frame reach this client.
	if !h.register(c) {
		_ = ws.Close()
		return
	}
	defer h.unregister(c)

	opts := []wsport.Option{
		wsport.WithReadLimit(h.opts.ReadLimit),
		wsport.WithHandler(c),
		wsport.WithLogger(c.logger),
	}
	if h.opts.InboundRate > 0 {
		opts = append(opts, wsport.WithInboundLimit(h.opts.InboundRate, h.opts.InboundBurst))
	}
	c.conn = wsport.New(ws, opts...)

	c.logger.Info().Str("event", "relay.client_connected").Msg("client connected")
	c.run(ctx)
	c.logger.Info().Str("event", "relay.client_disconnected").Msg("client disconnected")
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	metrics.RelayClients.Inc()
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		metrics.RelayClients.Dec()
	}
	h.mu.Unlock()
}

// fromClient handles one inbound frame of c.
func (h *Hub) fromClient(c *client, msg *transport.MessageEvent) {
	metrics.IncRelayMessage("in")
	_, span := telemetry.Tracer("github.com/ManuGH/msgport/internal/relay").Start(context.Background(), "relay.client_message")
	defer span.End()
	span.SetAttributes(telemetry.ClientAttributes(c.id, "websocket")...)

	if h.opts.Upstream != nil {
		if err := h.opts.Upstream.PostMessage(msg.Data, "*", nil); err != nil {
			span.SetAttributes(telemetry.ErrorAttributes("upstream_error")...)
			c.logger.Warn().Err(err).Str("event", "relay.upstream_failed").Msg("failed to publish client frame")
		}
		return
	}

	h.broadcast(msg.Data, c)
	h.handlers.Deliver(&transport.MessageEvent{Data: msg.Data, Origin: c.id})
}

// fromUpstream handles one message of the shared bus.
func (h *Hub) fromUpstream(msg *transport.MessageEvent) {
	h.broadcast(msg.Data, nil)
	h.handlers.Deliver(msg)
}

// broadcast queues data for every client except skip.
func (h *Hub) broadcast(data any, skip *client) {
	frame, err := toFrame(data)
	if err != nil {
		h.logger.Warn().Err(err).Str("event", "relay.encode_failed").Msg("dropping unencodable message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c == skip {
			continue
		}
		if c.enqueue(frame) {
			metrics.IncRelayMessage("out")
		}
	}
}

// PostMessage broadcasts data to all clients, or publishes it upstream when
// the hub has one.
func (h *Hub) PostMessage(data any, targetOrigin string, transfer []any) error {
	if h.isClosed() {
		return transport.ErrClosed
	}
	if h.opts.Upstream != nil {
		return h.opts.Upstream.PostMessage(data, targetOrigin, transfer)
	}
	h.broadcast(data, nil)
	return nil
}

func (h *Hub) AddMessageHandler(handler transport.MessageHandler) { h.handlers.Add(handler) }

func (h *Hub) RemoveMessageHandler(handler transport.MessageHandler) { h.handlers.Remove(handler) }

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) isClosed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

// Close disconnects every client and detaches from the upstream.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	if h.upstream != nil {
		h.opts.Upstream.RemoveMessageHandler(h.upstream)
	}
	for _, c := range clients {
		c.stop()
	}
	return nil
}

type upstreamHandler struct {
	hub *Hub
}

func (u *upstreamHandler) HandleMessage(msg *transport.MessageEvent) {
	metrics.IncRelayMessage("rebroadcast")
	u.hub.fromUpstream(msg.Unwrap())
}

// toFrame renders data as websocket text once so every client gets the
// same bytes.
func toFrame(data any) (string, error) {
	switch v := data.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		text, err := json.MarshalToString(v)
		if err != nil {
			return "", fmt.Errorf("encode frame: %w", err)
		}
		return text, nil
	}
}

var _ transport.Target = (*Hub)(nil)
