// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package wsport exposes a websocket connection as a transport.Target.
package wsport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/msgport/internal/log"
	"github.com/ManuGH/msgport/internal/metrics"
	"github.com/ManuGH/msgport/internal/transport"
)

const (
	transportName = "websocket"

	// DefaultReadLimit caps a single inbound frame.
	DefaultReadLimit = 1 << 20
	writeWait        = 10 * time.Second
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Option configures a Conn.
type Option func(*Conn)

// WithInboundLimit drops inbound frames beyond r frames per second with the
// given burst.
func WithInboundLimit(r rate.Limit, burst int) Option {
	return func(c *Conn) {
		if r > 0 {
			c.limiter = rate.NewLimiter(r, burst)
		}
	}
}

// WithReadLimit overrides DefaultReadLimit.
func WithReadLimit(n int64) Option {
	return func(c *Conn) {
		if n > 0 {
			c.readLimit = n
		}
	}
}

// WithHandler registers h before the read loop starts, so no early frame
// is missed.
func WithHandler(h transport.MessageHandler) Option {
	return func(c *Conn) { c.handlers.Add(h) }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Conn) { c.logger = logger }
}

// Conn is a websocket connection carrying text frames. Every inbound text
// frame is delivered to the handlers as a string.
type Conn struct {
	ws        *websocket.Conn
	handlers  transport.Handlers
	limiter   *rate.Limiter
	readLimit int64
	logger    zerolog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
	err       error
	delivery  transport.Delivery
}

// New takes ownership of ws and starts its read loop.
func New(ws *websocket.Conn, opts ...Option) *Conn {
	c := &Conn{
		ws:        ws,
		readLimit: DefaultReadLimit,
		logger:    log.WithComponent("wsport"),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str(log.FieldRemote, ws.RemoteAddr().String()).Logger()
	ws.SetReadLimit(c.readLimit)

	go c.readLoop()
	return c
}

// Dial connects to a websocket URL.
func Dial(ctx context.Context, url string, header http.Header, opts ...Option) (*Conn, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return New(ws, opts...), nil
}

func (c *Conn) readLoop() {
	defer close(c.done)
	for {
		kind, payload, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				c.logger.Debug().Err(err).Str("event", "wsport.read_end").Msg("read loop ended")
			}
			c.err = err
			return
		}
		if kind != websocket.TextMessage {
			metrics.IncTransportDrop(transportName, "binary_frame")
			continue
		}
		if c.limiter != nil && !c.limiter.Allow() {
			metrics.IncTransportDrop(transportName, "rate_limited")
			continue
		}
		c.delivery.Begin()
		c.handlers.Deliver(&transport.MessageEvent{
			Data:   string(payload),
			Origin: c.ws.RemoteAddr().String(),
		})
		c.delivery.End()
		metrics.IncTransportDelivered(transportName)
	}
}

// PostMessage writes data as one text frame. Strings and byte slices are
// sent as they are; other values are JSON-encoded.
func (c *Conn) PostMessage(data any, targetOrigin string, transfer []any) error {
	var payload []byte
	switch v := data.(type) {
	case string:
		payload = []byte(v)
	case []byte:
		payload = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode frame: %w", err)
		}
		payload = b
	}
	return c.WriteText(payload)
}

// WriteText writes one text frame. Writes are serialized.
func (c *Conn) WriteText(payload []byte) error {
	select {
	case <-c.done:
		return transport.ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (c *Conn) AddMessageHandler(h transport.MessageHandler) { c.handlers.Add(h) }

func (c *Conn) RemoveMessageHandler(h transport.MessageHandler) { c.handlers.Remove(h) }

// Done is closed once the read loop has exited.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err returns the error that ended the read loop, once Done is closed.
func (c *Conn) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Close sends a close frame, closes the socket and waits for the read loop.
// Called from a handler, it returns without waiting; Done reports the exit.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.ws.Close()
		if !c.delivery.Active() {
			<-c.done
		}
	})
	return err
}

var _ transport.Target = (*Conn)(nil)
