package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/insightloop/dataqual/internal/api"
	"github.com/insightloop/dataqual/internal/api/middleware"
	"github.com/insightloop/dataqual/internal/config"
	"github.com/insightloop/dataqual/internal/coordinator"
	"github.com/insightloop/dataqual/internal/observability/metrics"
	"github.com/insightloop/dataqual/internal/storage/interfaces"
	"github.com/insightloop/dataqual/pkg/constants"
)

// Server is the HTTP server together with everything it drives: storage
// backends, the analysis coordinator and the metrics listener.
type Server struct {
	httpServer *http.Server
	config     *config.Config
	logger     *logrus.Logger
	metrics    *metrics.PrometheusMetrics
	coord      *coordinator.Coordinator
	store      interfaces.MetadataStore
	blobs      interfaces.BlobStore
	version    string
}

// NewServer wires all components from configuration
func NewServer(cfg *config.Config, version string, logger *logrus.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if version == "" {
		version = constants.AppVersion
	}

	pm, err := metrics.NewPrometheusMetrics(&metrics.PrometheusConfig{
		Enabled:   cfg.Server.EnableMetrics,
		Port:      cfg.Server.MetricsPort,
		Path:      "/metrics",
		Namespace: "dataqual",
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	store, blobs, err := buildStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	prof, err := buildProfiler(cfg, logger)
	if err != nil {
		return nil, err
	}

	requester, err := buildInsightRequester(cfg, logger)
	if err != nil {
		return nil, err
	}

	coord := coordinator.NewCoordinator(store, blobs, prof, requester, pm, &coordinator.Config{
		MaxUploadBytes: cfg.Upload.MaxBytes,
	}, logger)

	router := api.NewRouter(coord, store, blobs, pm, &api.RouterConfig{
		Auth: &middleware.AuthConfig{
			Enabled:       cfg.Auth.Enabled,
			JWTSecret:     cfg.Auth.JWTSecret,
			JWTExpiration: cfg.Auth.JWTExpiration,
		},
		Logging: &middleware.LoggingConfig{
			Enabled:      true,
			ExcludePaths: []string{"/health", "/metrics"},
		},
		MaxUploadBytes: cfg.Upload.MaxBytes,
		ReportTTL:      cfg.Upload.ReportTTL,
		Version:        version,
		Environment:    cfg.Environment,
	}, logger)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router.SetupRoutes(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		config:  cfg,
		logger:  logger,
		metrics: pm,
		coord:   coord,
		store:   store,
		blobs:   blobs,
		version: version,
	}, nil
}

// Start connects the storage backends and begins serving. It blocks until
// the listener fails or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if err := s.store.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect metadata store: %w", err)
	}
	if err := s.blobs.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect blob store: %w", err)
	}

	if s.config.Server.EnableMetrics {
		if err := s.metrics.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"addr":        s.httpServer.Addr,
		"environment": s.config.Environment,
		"version":     s.version,
	}).Info("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down: stop accepting requests, drain
// in-flight analysis runs, then release the backends.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.WithError(err).Error("Error shutting down HTTP server")
	}

	s.coord.Wait()

	if err := s.metrics.Stop(shutdownCtx); err != nil {
		s.logger.WithError(err).Error("Error shutting down metrics server")
	}

	if err := s.store.Close(); err != nil {
		s.logger.WithError(err).Error("Error closing metadata store")
	}
	if err := s.blobs.Close(); err != nil {
		s.logger.WithError(err).Error("Error closing blob store")
	}

	s.logger.Info("HTTP server stopped")
	return nil
}
