// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transport

// Loopback behaves like a window posting to itself: every message is
// delivered to every registered handler, including the poster's own.
// Data is passed by reference: all handlers see the value that was posted.
type Loopback struct {
	box *mailbox
}

// NewLoopback returns a started loopback with a queue of the given size
// (DefaultQueueSize when size <= 0).
func NewLoopback(size int) *Loopback {
	return &Loopback{box: newMailbox("loopback", size)}
}

// PostMessage queues data for delivery. targetOrigin and transfer are
// carried along but not interpreted.
func (l *Loopback) PostMessage(data any, targetOrigin string, transfer []any) error {
	return l.box.enqueue(&MessageEvent{Data: data, Origin: targetOrigin})
}

func (l *Loopback) AddMessageHandler(h MessageHandler) { l.box.handlers.Add(h) }

func (l *Loopback) RemoveMessageHandler(h MessageHandler) { l.box.handlers.Remove(h) }

// Close stops delivery. Further posts return ErrClosed. Close may be called
// from a handler; it then returns without waiting for the worker.
func (l *Loopback) Close() error {
	l.box.close()
	return nil
}

// Done is closed once the delivery worker has exited.
func (l *Loopback) Done() <-chan struct{} { return l.box.exited }

var _ Target = (*Loopback)(nil)
