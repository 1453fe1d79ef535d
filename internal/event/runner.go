// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package event

import "sync/atomic"

type runnerState int

const (
	runnerPending runnerState = iota
	runnerRunning
	runnerCompleted
)

// bucket is the ordered listener sequence of one (type, priority) pair.
// Runners hold the pointer, so a bucket detached from the registry keeps
// being iterated safely by whoever still runs it.
type bucket struct {
	listeners []*Listener
}

func (b *bucket) indexOf(l *Listener) int {
	for i, existing := range b.listeners {
		if existing == l {
			return i
		}
	}
	return -1
}

// runner executes one dispatch pass over one bucket. index and state are
// guarded by the owning registry's mutex.
type runner struct {
	owner  *Listeners
	bucket *bucket
	index  int
	state  runnerState

	immediatelyStopped atomic.Bool
}

func (r *runner) run(c *Call) {
	c.runner.Store(r)
	defer r.owner.finish(r)

	r.owner.mu.Lock()
	r.state = runnerRunning
	r.index = 0
	r.owner.mu.Unlock()

	for {
		if r.immediatelyStopped.Load() {
			return
		}

		r.owner.mu.Lock()
		if r.index >= len(r.bucket.listeners) {
			r.owner.mu.Unlock()
			return
		}
		l := r.bucket.listeners[r.index]
		r.owner.mu.Unlock()

		l.invoke(c)

		r.owner.mu.Lock()
		r.index++
		r.owner.mu.Unlock()
	}
}

// listenerRemoved compensates for the shift caused by removing the listener
// at removedIndex from b. Called with the registry mutex held.
func (r *runner) listenerRemoved(b *bucket, removedIndex int) {
	if r.bucket == b && removedIndex <= r.index {
		r.index--
	}
}
