// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package envelope

import (
	"encoding/json"
	"math"
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/msgport/internal/event"
)

func TestNewDispatcherID_Format(t *testing.T) {
	re := regexp.MustCompile(`^MP/(\d+)/(\d+)$`)
	for i := 0; i < 50; i++ {
		id := NewDispatcherID()
		m := re.FindStringSubmatch(id)
		require.NotNil(t, m, "unexpected id %q", id)
		assert.NotEqual(t, "0", m[1])
		assert.LessOrEqual(t, len(m[1]), 5)
	}
}

func TestEncode_PlainEncoderKeepsStructure(t *testing.T) {
	evt := event.NewEvent("ping", map[string]any{"n": 1})

	got, err := Encode(evt)
	require.NoError(t, err)

	want := map[string]any{"type": "ping", "data": map[string]any{"n": 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Encode mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode_FallsBackToJSONText(t *testing.T) {
	got, err := Encode(map[string]any{"type": "ping", "data": nil})
	require.NoError(t, err)
	assert.Equal(t, `{"data":null,"type":"ping"}`, got)
}

func TestEncode_EnvelopeNestsEncodedEvent(t *testing.T) {
	got, err := Encode(Envelope{
		Event:        map[string]any{"type": "ping", "data": map[string]any{"n": 1}},
		DispatcherID: "MP/1/2",
	})
	require.NoError(t, err)

	want := map[string]any{
		"event":        `{"data":{"n":1},"type":"ping"}`,
		"dispatcherId": "MP/1/2",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Encode mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode_UnsupportedValue(t *testing.T) {
	_, err := Encode(math.Inf(1))
	require.Error(t, err)

	_, err = Encode(&Envelope{Event: make(chan int), DispatcherID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode envelope")
}

func TestDecode(t *testing.T) {
	structured := map[string]any{"a": 1}

	tests := []struct {
		name string
		raw  any
		want any
	}{
		{name: "nil", raw: nil, want: nil},
		{name: "json text", raw: `{"a":1}`, want: map[string]any{"a": float64(1)}},
		{name: "json bytes", raw: []byte(`[1,"x"]`), want: []any{float64(1), "x"}},
		{name: "raw message", raw: json.RawMessage(`"s"`), want: "s"},
		{name: "invalid text", raw: `{not json`, want: nil},
		{name: "empty text", raw: ``, want: nil},
		{name: "structured passthrough", raw: structured, want: structured},
		{name: "number passthrough", raw: 12, want: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got any
			require.NotPanics(t, func() { got = Decode(tt.raw) })
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsEnvelope(t *testing.T) {
	assert.True(t, IsEnvelope(map[string]any{"event": nil, "dispatcherId": nil}))
	assert.True(t, IsEnvelope(Envelope{}))
	assert.True(t, IsEnvelope(&Envelope{}))
	assert.False(t, IsEnvelope((*Envelope)(nil)))
	assert.False(t, IsEnvelope(map[string]any{"event": "x"}))
	assert.False(t, IsEnvelope(map[string]any{"dispatcherId": "x"}))
	assert.False(t, IsEnvelope("text"))
	assert.False(t, IsEnvelope(nil))
}

func TestParse_RoundTrip(t *testing.T) {
	evt := event.NewEvent("ping", map[string]any{"n": 1, "tags": []any{"a"}})

	encoded, err := Encode(Envelope{Event: evt, DispatcherID: "MP/7/8"})
	require.NoError(t, err)

	// structured form
	env := Parse(encoded)
	require.NotNil(t, env)
	assert.Equal(t, "MP/7/8", env.DispatcherID)
	got := event.ToEvent(env.Event, nil)
	assert.Equal(t, "ping", got.Type)
	assert.Equal(t, map[string]any{"n": 1, "tags": []any{"a"}}, got.Data)

	// text form, as delivered by byte-oriented transports
	text, err := json.Marshal(encoded)
	require.NoError(t, err)
	env = Parse(string(text))
	require.NotNil(t, env)
	got = event.ToEvent(env.Event, nil)
	assert.Equal(t, "ping", got.Type)
	assert.Equal(t, map[string]any{"n": float64(1), "tags": []any{"a"}}, got.Data)
}

func TestParse_DoublyEncodedEvent(t *testing.T) {
	raw := `{"event":"{\"type\":\"ping\",\"data\":{\"n\":1}}","dispatcherId":"MP/1/1"}`

	env := Parse(raw)
	require.NotNil(t, env)

	want := &Envelope{
		Event:        map[string]any{"type": "ping", "data": map[string]any{"n": float64(1)}},
		DispatcherID: "MP/1/1",
	}
	if diff := cmp.Diff(want, env); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_RejectsNonEnvelopes(t *testing.T) {
	for _, raw := range []any{
		nil,
		"not json",
		`{"event":{"type":"x"}}`,
		`{"dispatcherId":"x"}`,
		`[1,2,3]`,
		`"just a string"`,
		[]byte(`{"type":"ping"}`),
		map[string]any{"type": "ping"},
		42,
	} {
		assert.Nil(t, Parse(raw), "raw=%v", raw)
	}
}

func TestParse_NonStringDispatcherID(t *testing.T) {
	env := Parse(`{"event":{"type":"x","data":null},"dispatcherId":17}`)
	require.NotNil(t, env)
	assert.Equal(t, "17", env.DispatcherID)
}

func TestParse_CopiesStructuredEvent(t *testing.T) {
	data := map[string]any{"n": 1, "tags": []any{"a"}}
	encoded, err := Encode(Envelope{Event: event.NewEvent("ping", data), DispatcherID: "MP/1/1"})
	require.NoError(t, err)

	first := event.ToEvent(Parse(encoded).Event, nil)
	second := event.ToEvent(Parse(encoded).Event, nil)

	first.Data.(map[string]any)["n"] = 2
	first.Data.(map[string]any)["tags"].([]any)[0] = "b"

	assert.Equal(t, map[string]any{"n": 1, "tags": []any{"a"}}, second.Data)
	assert.Equal(t, map[string]any{"n": 1, "tags": []any{"a"}}, data)
}
