// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package envelope encodes events for a message port and recognises them on
// the way back in.
//
// On the wire an envelope is either a structured value
//
//	{"event": <encoded event>, "dispatcherId": "MP/1234/1700000000000"}
//
// or the JSON text of that value. The nested event follows the same duality.
package envelope

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
)

// Wire field names.
const (
	FieldEvent        = "event"
	FieldDispatcherID = "dispatcherId"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// PlainEncoder is implemented by values that provide their own
// transport-safe representation. Encode uses it instead of JSON text.
type PlainEncoder interface {
	PlainValue() any
}

// Envelope tags an event with the id of the dispatcher that sent it.
type Envelope struct {
	Event        any    `json:"event"`
	DispatcherID string `json:"dispatcherId"`
}

// NewDispatcherID returns an id of the form MP/<1..10000>/<unix-ms>.
func NewDispatcherID() string {
	return fmt.Sprintf("MP/%d/%d", rand.IntN(10000)+1, time.Now().UnixMilli())
}

// Encode converts v into its wire form. Envelopes become a structured value
// with their event encoded recursively, plain encoders supply their own
// value, and everything else is marshalled to JSON text.
func Encode(v any) (any, error) {
	switch e := v.(type) {
	case Envelope:
		return encodeEnvelope(&e)
	case *Envelope:
		return encodeEnvelope(e)
	case PlainEncoder:
		return e.PlainValue(), nil
	}

	text, err := codec.MarshalToString(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return text, nil
}

func encodeEnvelope(e *Envelope) (any, error) {
	evt, err := Encode(e.Event)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return map[string]any{
		FieldEvent:        evt,
		FieldDispatcherID: e.DispatcherID,
	}, nil
}

// Decode turns raw wire data into a value. JSON text is parsed; anything
// that is already structured is returned unchanged. Unparseable text yields
// nil.
func Decode(raw any) any {
	var text []byte
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		text = []byte(v)
	case []byte:
		text = v
	case json.RawMessage:
		text = v
	default:
		return raw
	}

	var out any
	if err := codec.Unmarshal(text, &out); err != nil {
		return nil
	}
	return out
}

// IsEnvelope reports whether v carries both envelope fields. Only presence
// is checked, not the field types.
func IsEnvelope(v any) bool {
	switch e := v.(type) {
	case map[string]any:
		_, hasEvent := e[FieldEvent]
		_, hasID := e[FieldDispatcherID]
		return hasEvent && hasID
	case Envelope:
		return true
	case *Envelope:
		return e != nil
	default:
		return false
	}
}

// Parse decodes raw into an envelope with its event decoded as well. It
// returns nil for anything that is not an envelope.
//
// The event is copied: maps and slices in it are fresh, so every handler of
// an in-process transport gets its own payload. Other values such as
// pointers and structs are still shared with the poster.
func Parse(raw any) *Envelope {
	if !mayBeEnvelope(raw) {
		return nil
	}

	decoded := Decode(raw)
	if !IsEnvelope(decoded) {
		return nil
	}

	switch e := decoded.(type) {
	case Envelope:
		return &Envelope{Event: clone(Decode(e.Event)), DispatcherID: e.DispatcherID}
	case *Envelope:
		return &Envelope{Event: clone(Decode(e.Event)), DispatcherID: e.DispatcherID}
	}

	m := decoded.(map[string]any)
	return &Envelope{
		Event:        clone(Decode(m[FieldEvent])),
		DispatcherID: idString(m[FieldDispatcherID]),
	}
}

// mayBeEnvelope screens text payloads without a full decode, so traffic
// unrelated to the protocol on a shared channel is dropped cheaply.
func mayBeEnvelope(raw any) bool {
	var res gjson.Result
	switch v := raw.(type) {
	case string:
		if !gjson.Valid(v) {
			return false
		}
		res = gjson.Parse(v)
	case []byte:
		if !gjson.ValidBytes(v) {
			return false
		}
		res = gjson.ParseBytes(v)
	case json.RawMessage:
		if !gjson.ValidBytes(v) {
			return false
		}
		res = gjson.ParseBytes(v)
	default:
		return true
	}
	return res.IsObject() &&
		res.Get(FieldEvent).Exists() &&
		res.Get(FieldDispatcherID).Exists()
}

// clone copies the map and slice structure of v.
func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = clone(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = clone(e)
		}
		return out
	default:
		return v
	}
}

func idString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
