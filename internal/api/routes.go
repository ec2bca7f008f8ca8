package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/insightloop/dataqual/internal/api/handlers"
	"github.com/insightloop/dataqual/internal/api/middleware"
	"github.com/insightloop/dataqual/internal/coordinator"
	"github.com/insightloop/dataqual/internal/observability/metrics"
	"github.com/insightloop/dataqual/internal/storage/interfaces"
	"github.com/insightloop/dataqual/pkg/constants"
)

// RouterConfig wires the HTTP surface together
type RouterConfig struct {
	Auth           *middleware.AuthConfig
	Logging        *middleware.LoggingConfig
	MaxUploadBytes int64
	ReportTTL      time.Duration
	Version        string
	Environment    string
}

// Router holds the handlers behind the HTTP surface
type Router struct {
	datasetsHandler *handlers.DatasetsHandler
	analysisHandler *handlers.AnalysisHandler
	healthHandler   *handlers.HealthHandler
	authMiddleware  *middleware.AuthMiddleware
	logMiddleware   *middleware.LoggingMiddleware
	metrics         *metrics.PrometheusMetrics
}

// NewRouter creates the API router
func NewRouter(
	coord *coordinator.Coordinator,
	store interfaces.MetadataStore,
	blobs interfaces.BlobStore,
	pm *metrics.PrometheusMetrics,
	config *RouterConfig,
	logger *logrus.Logger,
) *Router {
	if config == nil {
		config = &RouterConfig{}
	}

	healthHandler := handlers.NewHealthHandler(config.Version, config.Environment)
	healthHandler.RegisterDependency("metadata", store)
	healthHandler.RegisterDependency("blobs", blobs)

	return &Router{
		datasetsHandler: handlers.NewDatasetsHandler(store, blobs, pm, config.MaxUploadBytes, logger),
		analysisHandler: handlers.NewAnalysisHandler(coord, store, blobs, config.ReportTTL, logger),
		healthHandler:   healthHandler,
		authMiddleware:  middleware.NewAuthMiddleware(config.Auth, logger),
		logMiddleware:   middleware.NewLoggingMiddleware(config.Logging, pm, logger),
		metrics:         pm,
	}
}

// SetupRoutes builds the mux router with all endpoints and middleware
func (router *Router) SetupRoutes() *mux.Router {
	r := mux.NewRouter()
	r.Use(router.logMiddleware.Middleware())

	// Unauthenticated operational endpoints
	r.HandleFunc("/health", router.healthHandler.GetHealth).Methods(http.MethodGet)
	r.HandleFunc("/version", router.healthHandler.GetVersion).Methods(http.MethodGet)
	if router.metrics != nil {
		r.Handle("/metrics", router.metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix(constants.APIPrefix).Subrouter()
	api.Use(router.authMiddleware.Middleware())

	api.HandleFunc("/datasets", router.datasetsHandler.Upload).Methods(http.MethodPost)
	api.HandleFunc("/datasets", router.datasetsHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/datasets/{id}", router.datasetsHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/datasets/{id}", router.datasetsHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/datasets/{id}/analysis", router.analysisHandler.Start).Methods(http.MethodPost)
	api.HandleFunc("/datasets/{id}/analysis", router.analysisHandler.Get).Methods(http.MethodGet)

	return r
}
