// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEvent_Defaults(t *testing.T) {
	evt := NewEvent("ping", nil)
	assert.Equal(t, "ping", evt.Type)
	assert.Nil(t, evt.Data)
	assert.False(t, evt.IsDefaultPrevented())

	evt.PreventDefault()
	evt.PreventDefault()
	assert.True(t, evt.IsDefaultPrevented())
}

func TestEvent_PlainValue(t *testing.T) {
	evt := NewEvent("ping", map[string]any{"n": 1})
	evt.PreventDefault()

	assert.Equal(t, map[string]any{
		"type": "ping",
		"data": map[string]any{"n": 1},
	}, evt.PlainValue())
}

func TestToEvent(t *testing.T) {
	prebuilt := NewEvent("ready", 1)

	tests := []struct {
		name     string
		input    any
		data     any
		wantType string
		wantData any
		wantSame bool
	}{
		{name: "string type", input: "ping", data: "x", wantType: "ping", wantData: "x"},
		{name: "numeric type is stringified", input: 42, data: nil, wantType: "42"},
		{name: "nil type", input: nil, data: 1, wantType: "null", wantData: 1},
		{name: "pointer event used as is", input: prebuilt, data: "ignored", wantType: "ready", wantData: 1, wantSame: true},
		{name: "event value", input: Event{Type: "v", Data: true}, data: nil, wantType: "v", wantData: true},
		{name: "decoded wire object", input: map[string]any{"type": "pong", "data": nil}, data: "ignored", wantType: "pong"},
		{name: "wire object without type", input: map[string]any{"data": 3.0}, wantType: "", wantData: 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToEvent(tt.input, tt.data)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantData, got.Data)
			if tt.wantSame {
				assert.Same(t, prebuilt, got)
			}
		})
	}
}
