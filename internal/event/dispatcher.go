// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package event

// Preprocessor transforms an event right before it reaches listeners. The
// returned event replaces the original; returning the argument is valid.
type Preprocessor func(*Event) *Event

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPreprocessor installs a transform applied to every dispatched event.
func WithPreprocessor(p Preprocessor) Option {
	return func(d *Dispatcher) {
		d.preprocess = p
	}
}

// WithTarget sets the value listeners see as Call.Target.
func WithTarget(target any) Option {
	return func(d *Dispatcher) {
		d.target = target
	}
}

// Dispatcher is the public face of the engine: a listener registry plus an
// optional preprocessor.
type Dispatcher struct {
	listeners  *Listeners
	preprocess Preprocessor
	target     any
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{listeners: NewListeners()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddEventListener registers l for eventType. Higher priorities run first;
// 0 is the default.
func (d *Dispatcher) AddEventListener(eventType string, l *Listener, priority int) {
	d.listeners.Add(eventType, l, -priority)
}

// HasEventListener reports whether any listener is registered for eventType.
func (d *Dispatcher) HasEventListener(eventType string) bool {
	return d.listeners.Has(eventType)
}

// RemoveEventListener unregisters l from every priority of eventType.
func (d *Dispatcher) RemoveEventListener(eventType string, l *Listener) {
	d.listeners.Remove(eventType, l)
}

// RemoveAllEventListeners unregisters every listener of eventType.
func (d *Dispatcher) RemoveAllEventListeners(eventType string) {
	d.listeners.RemoveAll(eventType)
}

// DispatchEvent normalizes eventOrType (see ToEvent) and dispatches it
// synchronously. It returns once every listener has run or propagation was
// stopped.
func (d *Dispatcher) DispatchEvent(eventOrType any, data any) {
	d.Dispatch(ToEvent(eventOrType, data))
}

// Dispatch preprocesses and dispatches a ready-made event.
func (d *Dispatcher) Dispatch(evt *Event) {
	if d.preprocess != nil {
		evt = d.preprocess(evt)
	}
	d.listeners.Dispatch(evt, d.target)
}

// Listeners exposes the underlying registry.
func (d *Dispatcher) Listeners() *Listeners {
	return d.listeners
}
