// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

var (
	// ErrMissingServer is returned when an app is run without an HTTP server.
	ErrMissingServer = errors.New("server is required")

	// ErrMissingService is returned when an app is run without a bus service.
	ErrMissingService = errors.New("service is required")
)
