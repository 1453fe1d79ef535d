// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package event

import "sync/atomic"

// Call is the dispatch-scoped context handed to every listener of one
// dispatch call.
type Call struct {
	Event  *Event
	Target any

	stopped atomic.Bool
	done    atomic.Bool
	runner  atomic.Pointer[runner]
}

// StopPropagation prevents the priority buckets after the current one from
// running. Listeners left in the current bucket still run.
func (c *Call) StopPropagation() {
	if c.done.Load() {
		return
	}
	c.stopped.Store(true)
}

// StopImmediatePropagation prevents any further listener of this call from
// running, in the current bucket or later ones.
func (c *Call) StopImmediatePropagation() {
	if c.done.Load() {
		return
	}
	if r := c.runner.Load(); r != nil {
		r.immediatelyStopped.Store(true)
	}
}

// Stopped reports whether StopPropagation was called during this dispatch.
func (c *Call) Stopped() bool {
	return c.stopped.Load()
}

// ImmediatelyStopped reports whether the bucket being run was stopped immediately.
func (c *Call) ImmediatelyStopped() bool {
	r := c.runner.Load()
	return r != nil && r.immediatelyStopped.Load()
}

// Listener is a registered callback. Its identity is the pointer returned by
// NewListener, which is what duplicate detection and removal compare.
type Listener struct {
	fn func(*Call)
}

// NewListener wraps fn into a listener handle.
func NewListener(fn func(c *Call)) *Listener {
	return &Listener{fn: fn}
}

func (l *Listener) invoke(c *Call) {
	if l.fn != nil {
		l.fn(c)
	}
}
