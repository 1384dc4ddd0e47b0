package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/crossfield/investigation-engine/internal/infrastructure/cache"
	"github.com/crossfield/investigation-engine/internal/infrastructure/config"
	"github.com/crossfield/investigation-engine/internal/metrics"
	"github.com/crossfield/investigation-engine/internal/service/engine"
)

// Server is the HTTP front of the investigation engine
type Server struct {
	config     *config.Config
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer assembles the mux and the middleware chain. When a Redis
// rate limiter is supplied the per-client window is shared across
// instances; otherwise each instance enforces its own token buckets.
func NewServer(cfg *config.Config, svc engine.Service, registry *metrics.Registry, limiter cache.RateLimiter, logger *slog.Logger) *Server {
	handler := NewHandler(svc, logger)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	rateLimit := rateLimitMiddleware(cfg.Security.RateLimit.RequestsPerSecond, cfg.Security.RateLimit.BurstSize)
	if limiter != nil {
		rateLimit = redisRateLimitMiddleware(limiter, cfg.Security.RateLimit.RequestsPerSecond, logger)
	}

	middlewares := []Middleware{
		requestIDMiddleware,
		recoveryMiddleware(logger),
		loggingMiddleware(logger),
		rateLimit,
	}
	if registry != nil {
		middlewares = append(middlewares, metricsMiddleware(registry))
	}
	if cfg.Security.JWTSecret != "" {
		middlewares = append(middlewares, authMiddleware(cfg.Security.JWTSecret))
	}

	return &Server{
		config: cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      chain(mux, middlewares...),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// Start serves until the listener fails or Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
