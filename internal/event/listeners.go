// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package event

import (
	"slices"
	"sync"
)

// Listeners is the listener registry: event type -> stored priority -> bucket.
// Stored priorities run in ascending order.
//
// The mutex is never held while a listener runs, so listeners may mutate the
// registry or dispatch re-entrantly.
type Listeners struct {
	mu      sync.Mutex
	types   map[string]map[int]*bucket
	runners map[*runner]struct{}
}

// NewListeners creates an empty registry.
func NewListeners() *Listeners {
	return &Listeners{
		types:   make(map[string]map[int]*bucket),
		runners: make(map[*runner]struct{}),
	}
}

// Add appends l to the bucket of (eventType, priority) unless it is already there.
func (r *Listeners) Add(eventType string, l *Listener, priority int) {
	if l == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	priorities, ok := r.types[eventType]
	if !ok {
		priorities = make(map[int]*bucket)
		r.types[eventType] = priorities
	}
	b, ok := priorities[priority]
	if !ok {
		b = &bucket{}
		priorities[priority] = b
	}
	if b.indexOf(l) < 0 {
		b.listeners = append(b.listeners, l)
	}
}

// Has reports whether at least one listener is registered for eventType.
func (r *Listeners) Has(eventType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.types[eventType]) > 0
}

// Remove drops l from every bucket of eventType. Emptied buckets are deleted
// and active runners are told about the removal.
func (r *Listeners) Remove(eventType string, l *Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	priorities, ok := r.types[eventType]
	if !ok {
		return
	}
	for priority, b := range priorities {
		idx := b.indexOf(l)
		if idx < 0 {
			continue
		}
		b.listeners = slices.Delete(b.listeners, idx, idx+1)
		if len(b.listeners) == 0 {
			delete(priorities, priority)
		}
		for run := range r.runners {
			run.listenerRemoved(b, idx)
		}
	}
}

// RemoveAll drops every listener of eventType. Runners already iterating a
// bucket of that type finish on their own reference to it.
func (r *Listeners) RemoveAll(eventType string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.types, eventType)
}

// Dispatch runs the listeners of evt.Type bucket by bucket. target is exposed
// to listeners as Call.Target.
func (r *Listeners) Dispatch(evt *Event, target any) {
	if evt == nil {
		return
	}

	r.mu.Lock()
	priorities, ok := r.types[evt.Type]
	if !ok {
		r.mu.Unlock()
		return
	}
	keys := make([]int, 0, len(priorities))
	for priority := range priorities {
		keys = append(keys, priority)
	}
	r.mu.Unlock()
	slices.Sort(keys)

	c := &Call{Event: evt, Target: target}
	defer c.done.Store(true)

	for _, priority := range keys {
		if c.stopped.Load() {
			return
		}

		r.mu.Lock()
		b, ok := priorities[priority]
		if !ok {
			// emptied while an earlier bucket was running
			r.mu.Unlock()
			continue
		}
		run := &runner{owner: r, bucket: b, state: runnerPending}
		r.runners[run] = struct{}{}
		r.mu.Unlock()

		run.run(c)
		if run.immediatelyStopped.Load() {
			return
		}
	}
}

// ActiveRunners returns the number of bucket passes currently in flight.
func (r *Listeners) ActiveRunners() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.runners)
}

func (r *Listeners) finish(run *runner) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run.state = runnerCompleted
	delete(r.runners, run)
}
