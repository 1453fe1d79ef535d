// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package port carries events over a raw message transport.
//
// A Dispatcher wraps every outgoing event in an envelope tagged with its own
// id. Inbound envelopes carrying that id are echoes of its own sends and go
// to the Sender dispatcher; everything else goes to the Receiver, which is
// where application listeners live.
package port

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/msgport/internal/envelope"
	"github.com/ManuGH/msgport/internal/event"
	"github.com/ManuGH/msgport/internal/log"
	"github.com/ManuGH/msgport/internal/metrics"
	"github.com/ManuGH/msgport/internal/telemetry"
	"github.com/ManuGH/msgport/internal/transport"
)

const tracerName = "github.com/ManuGH/msgport/internal/port"

// DefaultTargetOrigin is passed to every send unless overridden.
const DefaultTargetOrigin = "*"

// SendFunc replaces the target's PostMessage for outgoing envelopes.
type SendFunc func(data any, targetOrigin string, transfer []any) error

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSend routes outgoing envelopes through send instead of the target.
func WithSend(send SendFunc) Option {
	return func(d *Dispatcher) { d.send = send }
}

// WithInboundPreprocessor transforms inbound events before receiver
// listeners see them. Echoes are not preprocessed.
func WithInboundPreprocessor(p event.Preprocessor) Option {
	return func(d *Dispatcher) { d.inbound = p }
}

// WithOutboundPreprocessor transforms events before they are encoded.
// Returning nil suppresses the send.
func WithOutboundPreprocessor(p event.Preprocessor) Option {
	return func(d *Dispatcher) { d.outbound = p }
}

// WithTargetOrigin overrides DefaultTargetOrigin.
func WithTargetOrigin(origin string) Option {
	return func(d *Dispatcher) { d.targetOrigin = origin }
}

// WithLogger replaces the default "port" component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// Dispatcher is an event dispatcher bound to a raw transport.
type Dispatcher struct {
	id           string
	target       transport.Target
	targetOrigin string
	send         SendFunc
	inbound      event.Preprocessor
	outbound     event.Preprocessor
	logger       zerolog.Logger

	sender   *event.Dispatcher
	receiver *event.Dispatcher
}

// New creates a dispatcher and subscribes it to target. It panics when
// target is nil.
func New(target transport.Target, opts ...Option) *Dispatcher {
	if target == nil {
		panic("port: nil target")
	}

	d := &Dispatcher{
		id:           envelope.NewDispatcherID(),
		target:       target,
		targetOrigin: DefaultTargetOrigin,
		logger:       log.WithComponent("port"),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With().Str(log.FieldDispatcherID, d.id).Logger()

	d.sender = event.NewDispatcher(event.WithTarget(d))
	d.receiver = event.NewDispatcher(event.WithTarget(d), event.WithPreprocessor(d.inbound))

	target.AddMessageHandler(d)
	return d
}

// ID is the dispatcherId stamped on every outgoing envelope.
func (d *Dispatcher) ID() string { return d.id }

// Target returns the transport this dispatcher is subscribed to.
func (d *Dispatcher) Target() transport.Target { return d.target }

// TargetOrigin returns the origin passed to PostMessage.
func (d *Dispatcher) TargetOrigin() string { return d.targetOrigin }

// Sender receives echoes of this dispatcher's own events.
func (d *Dispatcher) Sender() *event.Dispatcher { return d.sender }

// Receiver receives events sent by anyone else.
func (d *Dispatcher) Receiver() *event.Dispatcher { return d.receiver }

// AddEventListener registers l for inbound events of eventType.
func (d *Dispatcher) AddEventListener(eventType string, l *event.Listener, priority int) {
	d.receiver.AddEventListener(eventType, l, priority)
}

// HasEventListener reports whether the receiver has a listener for eventType.
func (d *Dispatcher) HasEventListener(eventType string) bool {
	return d.receiver.HasEventListener(eventType)
}

// RemoveEventListener unregisters l from the receiver at every priority.
func (d *Dispatcher) RemoveEventListener(eventType string, l *event.Listener) {
	d.receiver.RemoveEventListener(eventType, l)
}

// RemoveAllEventListeners drops every receiver listener for eventType.
func (d *Dispatcher) RemoveAllEventListeners(eventType string) {
	d.receiver.RemoveAllEventListeners(eventType)
}

// DispatchEvent sends an event over the transport. eventOrType and data are
// normalized like event.ToEvent. Local listeners are not invoked directly;
// they only see the event if the transport echoes it back.
func (d *Dispatcher) DispatchEvent(eventOrType any, data any, transfer ...any) error {
	evt := event.ToEvent(eventOrType, data)
	if d.outbound != nil {
		evt = d.outbound(evt)
		if evt == nil {
			metrics.IncOutbound("suppressed")
			return nil
		}
	}

	_, span := telemetry.Tracer(tracerName).Start(context.Background(), "port.dispatch")
	defer span.End()
	span.SetAttributes(telemetry.EventAttributes(evt.Type, d.id)...)

	wire, err := envelope.Encode(&envelope.Envelope{Event: evt, DispatcherID: d.id})
	if err != nil {
		metrics.IncOutbound("encode_error")
		span.SetAttributes(telemetry.ErrorAttributes("encode_error")...)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("dispatch %q: %w", evt.Type, err)
	}

	send := d.send
	if send == nil {
		send = d.target.PostMessage
	}
	if err := send(wire, d.targetOrigin, transfer); err != nil {
		metrics.IncOutbound("send_error")
		span.SetAttributes(telemetry.ErrorAttributes("send_error")...)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("dispatch %q: %w", evt.Type, err)
	}

	metrics.IncOutbound("ok")
	d.logger.Debug().
		Str("event", "port.sent").
		Str(log.FieldEventType, evt.Type).
		Msg("event sent")
	return nil
}

// HandleMessage routes one raw inbound message. Messages that are not
// envelopes are ignored.
func (d *Dispatcher) HandleMessage(msg *transport.MessageEvent) {
	msg = msg.Unwrap()
	if msg == nil {
		metrics.IncInboundDropped("empty")
		return
	}

	env := envelope.Parse(msg.Data)
	if env == nil {
		metrics.IncInboundDropped("not_envelope")
		d.logger.Debug().
			Str("event", "port.ignored").
			Str(log.FieldReason, "not_envelope").
			Msg("ignoring inbound message")
		return
	}

	evt := event.ToEvent(env.Event, nil)
	_, span := telemetry.Tracer(tracerName).Start(context.Background(), "port.receive")
	defer span.End()
	span.SetAttributes(telemetry.EventAttributes(evt.Type, d.id)...)

	if env.DispatcherID == d.id {
		span.SetAttributes(telemetry.RouteAttributes(metrics.RouteSender, "")...)
		metrics.IncInbound(metrics.RouteSender)
		d.logger.Debug().
			Str("event", "port.echo").
			Str(log.FieldEventType, evt.Type).
			Msg("routing echo to sender")
		d.sender.Dispatch(evt)
		return
	}

	span.SetAttributes(telemetry.RouteAttributes(metrics.RouteReceiver, env.DispatcherID)...)
	metrics.IncInbound(metrics.RouteReceiver)
	d.logger.Debug().
		Str("event", "port.received").
		Str(log.FieldEventType, evt.Type).
		Str("from", env.DispatcherID).
		Msg("routing message to receiver")
	d.receiver.Dispatch(evt)
}

// Close unsubscribes the dispatcher from its target. Listeners stay
// registered but no longer receive anything.
func (d *Dispatcher) Close() error {
	d.target.RemoveMessageHandler(d)
	return nil
}

var _ transport.MessageHandler = (*Dispatcher)(nil)
