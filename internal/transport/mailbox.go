// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transport

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/msgport/internal/log"
	"github.com/ManuGH/msgport/internal/metrics"
)

// DefaultQueueSize bounds the per-endpoint delivery queue.
const DefaultQueueSize = 256

const dropLogEvery = 100

var dropCount atomic.Uint64

// mailbox delivers queued messages to its handlers in FIFO order on a single
// worker goroutine. Enqueue never blocks: a full queue drops the message.
type mailbox struct {
	name     string
	handlers Handlers
	queue    chan *MessageEvent

	mu       sync.RWMutex
	closed   bool
	done     chan struct{}
	exited   chan struct{}
	delivery Delivery
}

func newMailbox(name string, size int) *mailbox {
	if size <= 0 {
		size = DefaultQueueSize
	}
	m := &mailbox{
		name:  name,
		queue: make(chan *MessageEvent, size),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go m.loop()
	return m
}

func (m *mailbox) loop() {
	defer close(m.exited)
	for {
		select {
		case msg := <-m.queue:
			if !m.deliver(msg) {
				return
			}
		case <-m.done:
			return
		}
	}
}

// deliver runs the handlers for msg unless the mailbox was closed first.
func (m *mailbox) deliver(msg *MessageEvent) bool {
	m.delivery.Begin()
	defer m.delivery.End()

	select {
	case <-m.done:
		return false
	default:
	}
	m.handlers.Deliver(msg)
	metrics.IncTransportDelivered(m.name)
	return true
}

func (m *mailbox) enqueue(msg *MessageEvent) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("%s: %w", m.name, ErrClosed)
	}
	select {
	case m.queue <- msg:
		return nil
	default:
		metrics.IncTransportDrop(m.name, "queue_full")
		count := dropCount.Add(1)
		if count%dropLogEvery == 0 {
			logger := log.WithComponent("transport")
			logger.Warn().
				Str(log.FieldTransport, m.name).
				Uint64("dropped", count).
				Msg("delivery queue full, dropping messages")
		}
		return fmt.Errorf("%s: %w", m.name, ErrQueueFull)
	}
}

// close stops the worker and waits for it, unless handlers are running: a
// handler closing its own transport must not wait on itself. Messages still
// queued are discarded. Close is idempotent.
func (m *mailbox) close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.done)
	m.mu.Unlock()

	if !m.delivery.Active() {
		<-m.exited
	}
}
