package constants

import "time"

// Application constants
const (
	// Application metadata
	AppName        = "dataqual-server"
	AppDescription = "Dataset Quality Scoring and Issue Detection Service"
	AppVersion     = "0.1.0"

	// API constants
	APIVersion = "v1"
	APIPrefix  = "/api/v1"

	// Default configuration values
	DefaultPort            = 8080
	DefaultMetricsPort     = 9090
	DefaultHost            = "0.0.0.0"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Upload defaults
	DefaultMaxUploadBytes = 100 << 20 // 100MB
	MimeTypeCSV           = "text/csv"
	MimeTypeHTML          = "text/html"
	MimeTypeJSON          = "application/json"

	// Profiler defaults
	DefaultProfilerTimeout = 2 * time.Minute

	// Insight defaults
	DefaultInsightTimeout     = 30 * time.Second
	DefaultInsightMaxTokens   = 1024
	DefaultInsightTemperature = 0.3
	DefaultInsightModelID     = "anthropic.claude-3-haiku-20240307-v1:0"
	MaxRecommendations        = 10

	// Storage defaults
	DefaultStorageTimeout = 30 * time.Second
	DefaultAnalysisTable  = "dataqual-analyses"
	DefaultDatasetTable   = "dataqual-datasets"
	DefaultUploadPrefix   = "uploads"
	DefaultReportPrefix   = "reports"
	DefaultCacheTTL       = 15 * time.Minute
	DefaultCacheKeyPrefix = "dataqual"

	// Auth defaults
	DefaultTokenExpiration = 24 * time.Hour
)
