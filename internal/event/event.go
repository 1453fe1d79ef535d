// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package event

import "fmt"

// Event is a named occurrence with an opaque payload.
type Event struct {
	Type string
	Data any

	defaultPrevented bool
}

// NewEvent creates an event of the given type. A missing payload is nil.
func NewEvent(eventType string, data any) *Event {
	return &Event{Type: eventType, Data: data}
}

// IsDefaultPrevented reports whether PreventDefault was called.
func (e *Event) IsDefaultPrevented() bool {
	return e.defaultPrevented
}

// PreventDefault marks the event. The flag is advisory; the engine suppresses nothing.
func (e *Event) PreventDefault() {
	e.defaultPrevented = true
}

// PlainValue returns the transport-safe {type, data} representation.
func (e *Event) PlainValue() any {
	return map[string]any{
		"type": e.Type,
		"data": e.Data,
	}
}

// ToEvent normalizes eventOrType into an event. Events and decoded wire
// objects are used as they are; any other value is stringified into the
// type of a new event carrying data.
func ToEvent(eventOrType any, data any) *Event {
	switch v := eventOrType.(type) {
	case nil:
		return NewEvent("null", data)
	case *Event:
		return v
	case Event:
		return &v
	case map[string]any:
		evt := &Event{Data: v["data"]}
		if t, ok := v["type"]; ok && t != nil {
			evt.Type = fmt.Sprint(t)
		}
		return evt
	default:
		return NewEvent(fmt.Sprint(eventOrType), data)
	}
}
