// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package port

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ManuGH/msgport/internal/telemetry"
)

func recordSpans(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(noop.NewTracerProvider())
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

func spanAttr(s tracetest.SpanStub, key string) (attribute.Value, bool) {
	for _, kv := range s.Attributes {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing_DispatchAndReceive(t *testing.T) {
	exp := recordSpans(t)
	target := &mockTarget{}
	d := New(target)

	require.NoError(t, d.DispatchEvent("ping", nil))
	target.deliver(target.posts[0].data)
	target.deliver(map[string]any{
		"event":        map[string]any{"type": "pong"},
		"dispatcherId": "someone-else",
	})

	spans := exp.GetSpans()
	require.Len(t, spans, 3)

	assert.Equal(t, "port.dispatch", spans[0].Name)
	v, ok := spanAttr(spans[0], telemetry.EventTypeKey)
	require.True(t, ok)
	assert.Equal(t, "ping", v.AsString())

	assert.Equal(t, "port.receive", spans[1].Name)
	v, _ = spanAttr(spans[1], telemetry.RouteKey)
	assert.Equal(t, "sender", v.AsString())

	v, _ = spanAttr(spans[2], telemetry.RouteKey)
	assert.Equal(t, "receiver", v.AsString())
	v, _ = spanAttr(spans[2], telemetry.SenderIDKey)
	assert.Equal(t, "someone-else", v.AsString())
}

func TestTracing_SendErrorMarksSpan(t *testing.T) {
	exp := recordSpans(t)
	d := New(&mockTarget{postErr: errors.New("boom")})

	require.Error(t, d.DispatchEvent("ping", nil))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	v, _ := spanAttr(spans[0], telemetry.ErrorTypeKey)
	assert.Equal(t, "send_error", v.AsString())
}

func TestTracing_NonEnvelopeHasNoSpan(t *testing.T) {
	exp := recordSpans(t)
	target := &mockTarget{}
	New(target)

	target.deliver("plain text")
	target.deliver(`{"type":"ping"}`)

	assert.Empty(t, exp.GetSpans())
}
