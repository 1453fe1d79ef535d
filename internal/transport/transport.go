// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package transport defines the raw message channel a port dispatcher sits
// on, plus in-process implementations of it.
//
// A Target is fire-and-forget: PostMessage hands data to the channel and
// returns; whatever arrives later is delivered to the registered handlers.
// Some channels (a window posting to itself, a pub/sub topic) deliver a
// sender's own messages back to it.
package transport

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrClosed is returned when posting to a closed transport.
	ErrClosed = errors.New("transport closed")
	// ErrQueueFull is returned when a bounded delivery queue drops a message.
	ErrQueueFull = errors.New("transport queue full")
)

// MessageEvent is one raw inbound message.
type MessageEvent struct {
	// Data is the raw payload: JSON text or a structured value.
	Data any
	// Origin identifies where the message came from, if the transport knows.
	Origin string
	// NativeEvent is set by bindings that wrap the event of an underlying
	// platform; its Data takes precedence.
	NativeEvent *MessageEvent
}

// Unwrap returns the native event when present, m otherwise.
func (m *MessageEvent) Unwrap() *MessageEvent {
	if m != nil && m.NativeEvent != nil {
		return m.NativeEvent
	}
	return m
}

// MessageHandler receives raw inbound messages. Implementations must be
// comparable (typically pointer receivers) so they can be removed again.
type MessageHandler interface {
	HandleMessage(msg *MessageEvent)
}

// Target is a raw message channel endpoint.
type Target interface {
	// PostMessage sends data. transfer lists values whose ownership moves
	// with the message; in-process transports pass them along untouched.
	PostMessage(data any, targetOrigin string, transfer []any) error
	AddMessageHandler(h MessageHandler)
	RemoveMessageHandler(h MessageHandler)
}

// Handlers is a copy-on-write handler set shared by the transports.
type Handlers struct {
	mu   sync.RWMutex
	list []MessageHandler
}

// Add registers h unless it is already registered.
func (hs *Handlers) Add(h MessageHandler) {
	if h == nil {
		return
	}
	hs.mu.Lock()
	defer hs.mu.Unlock()

	for _, existing := range hs.list {
		if existing == h {
			return
		}
	}
	next := make([]MessageHandler, len(hs.list), len(hs.list)+1)
	copy(next, hs.list)
	hs.list = append(next, h)
}

// Remove unregisters h. Unknown handlers are ignored.
func (hs *Handlers) Remove(h MessageHandler) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	for i, existing := range hs.list {
		if existing == h {
			next := make([]MessageHandler, 0, len(hs.list)-1)
			next = append(next, hs.list[:i]...)
			hs.list = append(next, hs.list[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered handlers.
func (hs *Handlers) Len() int {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	return len(hs.list)
}

// Deliver hands msg to every handler registered at the time of the call.
func (hs *Handlers) Deliver(msg *MessageEvent) {
	hs.mu.RLock()
	list := hs.list
	hs.mu.RUnlock()

	for _, h := range list {
		h.HandleMessage(msg)
	}
}

// Delivery marks when a transport's delivery goroutine is running handlers.
// A handler may close its own transport; Close checks Active and skips
// waiting for the delivery goroutine, which exits on its own afterwards.
type Delivery struct {
	active atomic.Bool
}

// Begin marks the start of a delivery.
func (d *Delivery) Begin() { d.active.Store(true) }

// End marks the end of a delivery.
func (d *Delivery) End() { d.active.Store(false) }

// Active reports whether handlers are running.
func (d *Delivery) Active() bool { return d.active.Load() }
