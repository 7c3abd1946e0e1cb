// Package api exposes the ingestion pipeline's on-demand trigger
// endpoints — thin wrappers that run one scheduler tick synchronously and
// report {success, summary} or {success:false, errorMessage}. It owns no
// domain logic of its own.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"polymarket-ingestor/internal/config"
)

// Server runs the trigger-endpoint HTTP surface.
type Server struct {
	cfg      config.ServerConfig
	handlers *Handlers
	server   *http.Server
	logger   zerolog.Logger
}

// NewServer builds the chi router and wraps it in an http.Server, mounting
// one POST route per scheduler plus /healthz and /metrics.
func NewServer(cfg config.ServerConfig, h *Handlers, logger zerolog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", h.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/trigger", func(r chi.Router) {
		r.Post("/discovery", h.TriggerDiscovery)
		r.Post("/events", h.TriggerEvents)
		r.Post("/positions", h.TriggerPositions)
		r.Post("/trades", h.TriggerTradeSync)
		r.Post("/closed", h.TriggerClosedEnrich)
		r.Post("/batches", h.TriggerBatchSync)
		r.Post("/wallet-pnl", h.TriggerWalletPnl)
	})

	return &Server{
		cfg:      cfg,
		handlers: h,
		logger:   logger.With().Str("component", "api-server").Logger(),
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 5 * time.Minute, // trigger handlers run a tick synchronously
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start blocks serving until the server is stopped.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("trigger api starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("trigger api server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	s.logger.Info().Msg("stopping trigger api")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(rw, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("req_id", chimw.GetReqID(r.Context())).
				Int("status", rw.Status()).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		})
	}
}
