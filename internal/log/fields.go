// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldDispatcherID = "dispatcher_id"
	FieldClientID     = "client_id"
	FieldRequestID    = "request_id"

	// Dispatch fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldRoute     = "route"
	FieldReason    = "reason"

	// Transport fields
	FieldTransport = "transport"
	FieldChannel   = "channel"
	FieldRemote    = "remote_addr"
	FieldPath      = "path"
)
