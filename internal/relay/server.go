// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/msgport/internal/config"
	"github.com/ManuGH/msgport/internal/health"
	"github.com/ManuGH/msgport/internal/log"
	"github.com/ManuGH/msgport/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// Server is the relay's HTTP surface.
type Server struct {
	cfg    config.AppConfig
	hub    *Hub
	health *health.Manager
	router http.Handler
	logger zerolog.Logger
}

func NewServer(cfg config.AppConfig, hub *Hub, hm *health.Manager) *Server {
	s := &Server{
		cfg:    cfg,
		hub:    hub,
		health: hm,
		logger: log.WithComponent("relay.server"),
	}
	s.router = telemetry.HTTPHandler(s.routes(), "relay")
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(AccessLog)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.With(RateLimit(s.cfg.RateLimit.Requests, s.cfg.RateLimit.Window)).
		Get(s.cfg.WSPath, s.hub.ServeHTTP)
	return r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().
			Str("event", "relay.listening").
			Str("addr", ln.Addr().String()).
			Str(log.FieldPath, s.cfg.WSPath).
			Msg("relay listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Hijacked websocket connections are not tracked by Shutdown.
	_ = s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh
	s.logger.Info().Str("event", "relay.stopped").Msg("relay stopped")
	return nil
}

// ListenAndRun listens on the configured address and calls Run.
func (s *Server) ListenAndRun(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Listen, err)
	}
	return s.Run(ctx, ln)
}
