package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/insightloop/dataqual/internal/observability/metrics"
)

// LoggingConfig contains logging middleware configuration
type LoggingConfig struct {
	Enabled      bool     `json:"enabled"`
	ExcludePaths []string `json:"exclude_paths"`
}

// LoggingMiddleware logs each request with a generated request id and
// records HTTP metrics when a collector is attached
type LoggingMiddleware struct {
	config  *LoggingConfig
	logger  *logrus.Logger
	metrics *metrics.PrometheusMetrics
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(config *LoggingConfig, pm *metrics.PrometheusMetrics, logger *logrus.Logger) *LoggingMiddleware {
	if config == nil {
		config = &LoggingConfig{Enabled: true}
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &LoggingMiddleware{
		config:  config,
		logger:  logger,
		metrics: pm,
	}
}

// Middleware returns the HTTP middleware function
func (lm *LoggingMiddleware) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lm.config.Enabled || lm.isExcluded(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set("X-Request-ID", requestID)

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			lm.logger.WithFields(logrus.Fields{
				"request_id":  requestID,
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rw.statusCode,
				"size":        rw.size,
				"duration_ms": float64(duration.Microseconds()) / 1000.0,
				"remote":      r.RemoteAddr,
			}).Info("HTTP request")

			if lm.metrics != nil {
				lm.metrics.RecordHTTPRequest(r.Method, r.URL.Path, strconv.Itoa(rw.statusCode), duration)
			}
		})
	}
}

func (lm *LoggingMiddleware) isExcluded(path string) bool {
	for _, excluded := range lm.config.ExcludePaths {
		if path == excluded || strings.HasPrefix(path, excluded+"/") {
			return true
		}
	}
	return false
}
