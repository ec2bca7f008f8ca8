package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/insightloop/dataqual/pkg/constants"
)

// PrometheusMetrics provides Prometheus-based metrics collection
type PrometheusMetrics struct {
	logger   *logrus.Logger
	registry *prometheus.Registry
	server   *http.Server
	config   *PrometheusConfig

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Analysis pipeline metrics
	analysesStartedTotal   prometheus.Counter
	analysesCompletedTotal prometheus.Counter
	analysesFailedTotal    *prometheus.CounterVec
	analysesBusyTotal      prometheus.Counter
	analysisDuration       prometheus.Histogram
	analysesActive         prometheus.Gauge
	qualityScore           prometheus.Histogram
	issuesDetectedTotal    *prometheus.CounterVec
	insightFallbackTotal   prometheus.Counter

	// Upload metrics
	uploadsTotal    *prometheus.CounterVec
	uploadSizeBytes prometheus.Histogram

	// Storage metrics
	storageOperationsTotal *prometheus.CounterVec
	storageDuration        *prometheus.HistogramVec
}

// PrometheusConfig configures Prometheus metrics
type PrometheusConfig struct {
	Enabled   bool   `json:"enabled"`
	Port      int    `json:"port"`
	Path      string `json:"path"`
	Namespace string `json:"namespace"`
}

// NewPrometheusMetrics creates a new Prometheus metrics instance
func NewPrometheusMetrics(config *PrometheusConfig, logger *logrus.Logger) (*PrometheusMetrics, error) {
	if config == nil {
		config = getDefaultPrometheusConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}

	pm := &PrometheusMetrics{
		logger:   logger,
		registry: prometheus.NewRegistry(),
		config:   config,
	}

	pm.initializeMetrics()
	if err := pm.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return pm, nil
}

func getDefaultPrometheusConfig() *PrometheusConfig {
	return &PrometheusConfig{
		Enabled:   true,
		Port:      constants.DefaultMetricsPort,
		Path:      "/metrics",
		Namespace: "dataqual",
	}
}

func (pm *PrometheusMetrics) initializeMetrics() {
	ns := pm.config.Namespace

	pm.httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	pm.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	pm.analysesStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "analyses_started_total",
		Help:      "Total number of analysis runs started",
	})

	pm.analysesCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "analyses_completed_total",
		Help:      "Total number of analysis runs completed successfully",
	})

	pm.analysesFailedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "analyses_failed_total",
		Help:      "Total number of analysis runs that failed, by pipeline stage",
	}, []string{"stage"})

	pm.analysesBusyTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "analyses_busy_total",
		Help:      "Total number of analysis starts rejected because a run was in flight",
	})

	pm.analysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "analysis_duration_seconds",
		Help:      "End to end analysis pipeline duration in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	pm.analysesActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "analyses_active",
		Help:      "Number of analysis runs currently in flight",
	})

	pm.qualityScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "quality_score",
		Help:      "Distribution of computed dataset quality scores",
		Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	pm.issuesDetectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "issues_detected_total",
		Help:      "Total number of quality issues detected, by type and severity",
	}, []string{"type", "severity"})

	pm.insightFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "insight_fallback_total",
		Help:      "Total number of analyses that used the fallback insight",
	})

	pm.uploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "uploads_total",
		Help:      "Total number of dataset uploads",
	}, []string{"status"})

	pm.uploadSizeBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "upload_size_bytes",
		Help:      "Size of uploaded dataset files in bytes",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
	})

	pm.storageOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "storage_operations_total",
		Help:      "Total number of storage operations",
	}, []string{"backend", "operation", "status"})

	pm.storageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "storage_operation_duration_seconds",
		Help:      "Storage operation duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"backend", "operation"})
}

func (pm *PrometheusMetrics) registerMetrics() error {
	collectors := []prometheus.Collector{
		pm.httpRequestsTotal,
		pm.httpRequestDuration,
		pm.analysesStartedTotal,
		pm.analysesCompletedTotal,
		pm.analysesFailedTotal,
		pm.analysesBusyTotal,
		pm.analysisDuration,
		pm.analysesActive,
		pm.qualityScore,
		pm.issuesDetectedTotal,
		pm.insightFallbackTotal,
		pm.uploadsTotal,
		pm.uploadSizeBytes,
		pm.storageOperationsTotal,
		pm.storageDuration,
	}

	for _, collector := range collectors {
		if err := pm.registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// Start starts the Prometheus metrics server
func (pm *PrometheusMetrics) Start(ctx context.Context) error {
	if !pm.config.Enabled {
		pm.logger.Info("Prometheus metrics disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(pm.config.Path, pm.Handler())

	pm.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", pm.config.Port),
		Handler: mux,
	}

	pm.logger.WithFields(logrus.Fields{
		"port": pm.config.Port,
		"path": pm.config.Path,
	}).Info("Starting Prometheus metrics server")

	go func() {
		if err := pm.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			pm.logger.WithError(err).Error("Prometheus metrics server error")
		}
	}()

	return nil
}

// Stop stops the Prometheus metrics server
func (pm *PrometheusMetrics) Stop(ctx context.Context) error {
	if pm.server == nil {
		return nil
	}

	pm.logger.Info("Stopping Prometheus metrics server")
	return pm.server.Shutdown(ctx)
}

// Handler exposes the metrics endpoint for mounting on an existing router
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// HTTP metrics
func (pm *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	pm.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	pm.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Analysis metrics
func (pm *PrometheusMetrics) RecordAnalysisStarted() {
	pm.analysesStartedTotal.Inc()
	pm.analysesActive.Inc()
}

func (pm *PrometheusMetrics) RecordAnalysisCompleted(score int, duration time.Duration) {
	pm.analysesCompletedTotal.Inc()
	pm.analysesActive.Dec()
	pm.analysisDuration.Observe(duration.Seconds())
	pm.qualityScore.Observe(float64(score))
}

func (pm *PrometheusMetrics) RecordAnalysisFailed(stage string, duration time.Duration) {
	pm.analysesFailedTotal.WithLabelValues(stage).Inc()
	pm.analysesActive.Dec()
	pm.analysisDuration.Observe(duration.Seconds())
}

func (pm *PrometheusMetrics) RecordAnalysisBusy() {
	pm.analysesBusyTotal.Inc()
}

func (pm *PrometheusMetrics) RecordIssueDetected(issueType, severity string) {
	pm.issuesDetectedTotal.WithLabelValues(issueType, severity).Inc()
}

func (pm *PrometheusMetrics) RecordInsightFallback() {
	pm.insightFallbackTotal.Inc()
}

// Upload metrics
func (pm *PrometheusMetrics) RecordUpload(status string, sizeBytes int64) {
	pm.uploadsTotal.WithLabelValues(status).Inc()
	if sizeBytes > 0 {
		pm.uploadSizeBytes.Observe(float64(sizeBytes))
	}
}

// Storage metrics
func (pm *PrometheusMetrics) RecordStorageOperation(backend, operation, status string, duration time.Duration) {
	pm.storageOperationsTotal.WithLabelValues(backend, operation, status).Inc()
	pm.storageDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}
