// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys used on message-port spans.
const (
	EventTypeKey    = "msgport.event.type"
	DispatcherIDKey = "msgport.dispatcher.id"
	RouteKey        = "msgport.route"
	SenderIDKey     = "msgport.sender.id"
	ClientIDKey     = "msgport.client.id"
	TransportKey    = "msgport.transport"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// EventAttributes describes one event passing through a dispatcher.
func EventAttributes(eventType, dispatcherID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(EventTypeKey, eventType),
		attribute.String(DispatcherIDKey, dispatcherID),
	}
}

// RouteAttributes describes where an inbound envelope was routed. Empty
// values are omitted.
func RouteAttributes(route, senderID string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if route != "" {
		attrs = append(attrs, attribute.String(RouteKey, route))
	}
	if senderID != "" {
		attrs = append(attrs, attribute.String(SenderIDKey, senderID))
	}
	return attrs
}

// ClientAttributes describes a relay client frame.
func ClientAttributes(clientID, transport string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ClientIDKey, clientID),
		attribute.String(TransportKey, transport),
	}
}

// ErrorAttributes marks a span as failed with errorType.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
