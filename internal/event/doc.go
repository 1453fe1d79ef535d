// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package event implements the synchronous, priority-ordered event dispatch
// engine used on both sides of a message port.
//
// Listeners are registered per event type and priority. A higher priority
// number runs earlier; equal priorities run in registration order. Listeners
// may add or remove listeners (including themselves) and re-enter the
// dispatcher while a dispatch is in flight; the iteration of every active
// bucket is adjusted so no listener is skipped or invoked twice.
//
// Propagation control is scoped to a single dispatch call and lives on the
// [Call] handed to each listener, never on the [Event] itself:
//
//   - StopPropagation lets the rest of the current priority bucket run and
//     prevents later buckets from starting.
//   - StopImmediatePropagation stops right after the current listener.
//
// A panicking listener is not recovered. The panic propagates to the caller
// of DispatchEvent and aborts the remaining listeners of that call.
package event
