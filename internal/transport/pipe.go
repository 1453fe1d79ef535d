// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transport

// PipePort is one end of an in-process message channel. Messages posted on
// one end are delivered to the handlers of the other end only.
// Data is passed by reference, as with Loopback.
type PipePort struct {
	box  *mailbox
	peer *PipePort
}

// NewPipe returns two connected ports. buffer bounds each direction's queue.
func NewPipe(buffer int) (*PipePort, *PipePort) {
	a := &PipePort{box: newMailbox("pipe", buffer)}
	b := &PipePort{box: newMailbox("pipe", buffer)}
	a.peer, b.peer = b, a
	return a, b
}

// PostMessage queues data for the peer's handlers.
func (p *PipePort) PostMessage(data any, targetOrigin string, transfer []any) error {
	return p.peer.box.enqueue(&MessageEvent{Data: data, Origin: targetOrigin})
}

func (p *PipePort) AddMessageHandler(h MessageHandler) { p.box.handlers.Add(h) }

func (p *PipePort) RemoveMessageHandler(h MessageHandler) { p.box.handlers.Remove(h) }

// Close stops delivery to this end. Posts from the peer then fail with
// ErrClosed. Like Loopback.Close it is safe to call from a handler.
func (p *PipePort) Close() error {
	p.box.close()
	return nil
}

// Done is closed once this end's delivery worker has exited.
func (p *PipePort) Done() <-chan struct{} { return p.box.exited }

var _ Target = (*PipePort)(nil)
